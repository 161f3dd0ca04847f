// Package config provides unified configuration loading for pedigree.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/pedigree/internal/agemodel"
	"github.com/nvandessel/pedigree/internal/constants"
	"gopkg.in/yaml.v3"
)

// PedigreeConfig contains all pedigree configuration settings.
type PedigreeConfig struct {
	// Simulation contains the demographic and run parameters.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// AgeModel contains the Gompertz–Makeham mortality parameters.
	AgeModel agemodel.Params `json:"age_model" yaml:"age_model"`

	// Logging contains settings for operational logging and event tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store contains settings for run persistence.
	Store StoreConfig `json:"store" yaml:"store"`

	// Metrics contains settings for metrics export.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// SimulationConfig configures a simulation run.
type SimulationConfig struct {
	// Founders is the number of founders born at time zero.
	Founders int `json:"founders" yaml:"founders"`

	// Horizon is the simulated time at which the run stops.
	Horizon float64 `json:"horizon" yaml:"horizon"`

	// Seed makes runs reproducible.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Fidelity is the probability that a paired individual looks for a new mate.
	// Range: 0.0 to 1.0
	Fidelity float64 `json:"fidelity" yaml:"fidelity"`

	// MatePolicy is "uniform" (default) or "selective".
	MatePolicy string `json:"mate_policy" yaml:"mate_policy"`

	// SampleInterval is the spacing of population samples. 0 disables sampling.
	SampleInterval float64 `json:"sample_interval" yaml:"sample_interval"`

	MinMatingAgeFemale float64 `json:"min_mating_age_female" yaml:"min_mating_age_female"`
	MaxMatingAgeFemale float64 `json:"max_mating_age_female" yaml:"max_mating_age_female"`
	MinMatingAgeMale   float64 `json:"min_mating_age_male" yaml:"min_mating_age_male"`
	MaxMatingAgeMale   float64 `json:"max_mating_age_male" yaml:"max_mating_age_male"`

	// ReproductionRate overrides the calibrated rate when positive.
	ReproductionRate float64 `json:"reproduction_rate,omitempty" yaml:"reproduction_rate,omitempty"`

	// MaxDepth bounds the coalescence walk. 0 means unbounded.
	MaxDepth float64 `json:"max_depth" yaml:"max_depth"`

	// Lineage selects the trajectories to compute: "paternal", "maternal" or "both".
	Lineage string `json:"lineage" yaml:"lineage"`
}

// LoggingConfig configures pedigree's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event tracing to .pedigree/events.jsonl.
	// "trace" additionally reports every skipped reproduction.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	// Enabled saves every run to the SQLite store.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the data directory. Supports ${VAR} syntax for env vars.
	Dir string `json:"dir" yaml:"dir"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is a path to write Prometheus text-format metrics after each
	// run. Empty disables export.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// Default returns a PedigreeConfig with sensible defaults.
func Default() *PedigreeConfig {
	return &PedigreeConfig{
		Simulation: SimulationConfig{
			Founders:           constants.DefaultFounders,
			Horizon:            constants.DefaultHorizon,
			Seed:               constants.DefaultSeed,
			Fidelity:           constants.DefaultFidelity,
			MatePolicy:         "uniform",
			SampleInterval:     constants.DefaultSampleInterval,
			MinMatingAgeFemale: constants.MinMatingAgeFemale,
			MaxMatingAgeFemale: constants.MaxMatingAgeFemale,
			MinMatingAgeMale:   constants.MinMatingAgeMale,
			MaxMatingAgeMale:   constants.MaxMatingAgeMale,
			Lineage:            string(constants.LineageBoth),
		},
		AgeModel: agemodel.DefaultParams(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Enabled: true,
			Dir:     constants.DataDirName,
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.pedigree/config.yaml -> environment variables
func Load() (*PedigreeConfig, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, constants.DataDirName, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads configuration from an explicit file when path is set and
// from the default locations otherwise. Environment variables apply in
// both cases.
func LoadPath(path string) (*PedigreeConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*PedigreeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Dir = expandEnvVars(config.Store.Dir)
	config.Metrics.Textfile = expandEnvVars(config.Metrics.Textfile)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *PedigreeConfig) Validate() error {
	s := c.Simulation
	if s.Founders <= 0 {
		return fmt.Errorf("founders must be positive, got %d", s.Founders)
	}
	if s.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %f", s.Horizon)
	}
	if s.Fidelity < 0 || s.Fidelity > 1 {
		return fmt.Errorf("fidelity must be between 0 and 1, got %f", s.Fidelity)
	}
	if s.Founders > constants.MaxFounders {
		return fmt.Errorf("founders must be at most %d, got %d", constants.MaxFounders, s.Founders)
	}
	if s.Horizon > constants.MaxHorizon {
		return fmt.Errorf("horizon must be at most %g, got %f", constants.MaxHorizon, s.Horizon)
	}
	if s.SampleInterval < 0 {
		return fmt.Errorf("sample_interval must be non-negative, got %f", s.SampleInterval)
	}
	if s.SampleInterval > 0 && s.Horizon/s.SampleInterval > constants.MaxSamples {
		return fmt.Errorf("sample_interval %g yields more than %d samples over horizon %g",
			s.SampleInterval, constants.MaxSamples, s.Horizon)
	}
	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative, got %f", s.MaxDepth)
	}
	if s.ReproductionRate < 0 {
		return fmt.Errorf("reproduction_rate must be non-negative, got %f", s.ReproductionRate)
	}
	if s.MinMatingAgeFemale < 0 || s.MinMatingAgeFemale > s.MaxMatingAgeFemale {
		return fmt.Errorf("invalid female mating ages: [%f, %f]", s.MinMatingAgeFemale, s.MaxMatingAgeFemale)
	}
	if s.MinMatingAgeMale < 0 || s.MinMatingAgeMale > s.MaxMatingAgeMale {
		return fmt.Errorf("invalid male mating ages: [%f, %f]", s.MinMatingAgeMale, s.MaxMatingAgeMale)
	}

	validPolicies := map[string]bool{"": true, "uniform": true, "selective": true}
	if !validPolicies[s.MatePolicy] {
		return fmt.Errorf("invalid mate_policy: %s (valid: uniform, selective)", s.MatePolicy)
	}

	if s.Lineage != "" && !constants.Lineage(s.Lineage).Valid() {
		return fmt.Errorf("invalid lineage: %s (valid: paternal, maternal, both)", s.Lineage)
	}

	if err := c.AgeModel.Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *PedigreeConfig) {
	if v := os.Getenv("PEDIGREE_FOUNDERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Founders = n
		}
	}
	if v := os.Getenv("PEDIGREE_HORIZON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Horizon = f
		}
	}
	if v := os.Getenv("PEDIGREE_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}
	if v := os.Getenv("PEDIGREE_FIDELITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Fidelity = f
		}
	}
	if v := os.Getenv("PEDIGREE_MATE_POLICY"); v != "" {
		config.Simulation.MatePolicy = v
	}
	if v := os.Getenv("PEDIGREE_SAMPLE_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.SampleInterval = f
		}
	}
	if v := os.Getenv("PEDIGREE_MAX_DEPTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.MaxDepth = f
		}
	}

	if v := os.Getenv("PEDIGREE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("PEDIGREE_STORE_ENABLED"); v != "" {
		config.Store.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PEDIGREE_STORE_DIR"); v != "" {
		config.Store.Dir = v
	}

	if v := os.Getenv("PEDIGREE_METRICS_TEXTFILE"); v != "" {
		config.Metrics.Textfile = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
