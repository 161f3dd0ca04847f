package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()

	// Simulation defaults
	if config.Simulation.Founders != 1000 {
		t.Errorf("expected Founders 1000, got %d", config.Simulation.Founders)
	}
	if config.Simulation.Horizon != 2000 {
		t.Errorf("expected Horizon 2000, got %f", config.Simulation.Horizon)
	}
	if config.Simulation.Seed != 42 {
		t.Errorf("expected Seed 42, got %d", config.Simulation.Seed)
	}
	if config.Simulation.Fidelity != 0.1 {
		t.Errorf("expected Fidelity 0.1, got %f", config.Simulation.Fidelity)
	}
	if config.Simulation.MatePolicy != "uniform" {
		t.Errorf("expected MatePolicy 'uniform', got '%s'", config.Simulation.MatePolicy)
	}
	if config.Simulation.MinMatingAgeFemale != 16 || config.Simulation.MaxMatingAgeFemale != 50 {
		t.Errorf("unexpected female mating window [%f, %f]",
			config.Simulation.MinMatingAgeFemale, config.Simulation.MaxMatingAgeFemale)
	}
	if config.Simulation.MinMatingAgeMale != 16 || config.Simulation.MaxMatingAgeMale != 73 {
		t.Errorf("unexpected male mating window [%f, %f]",
			config.Simulation.MinMatingAgeMale, config.Simulation.MaxMatingAgeMale)
	}

	// Age model defaults
	if config.AgeModel.AccidentRate != 0.01 || config.AgeModel.DeathRate != 12.5 || config.AgeModel.AgeScale != 100 {
		t.Errorf("unexpected age model defaults: %+v", config.AgeModel)
	}

	// Logging and store defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if !config.Store.Enabled || config.Store.Dir != ".pedigree" {
		t.Errorf("unexpected store defaults: %+v", config.Store)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  founders: 250
  horizon: 500
  seed: 7
  fidelity: 0.3
  mate_policy: selective
  max_depth: 300

age_model:
  accident_rate: 0.02

store:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Founders != 250 {
		t.Errorf("expected Founders 250, got %d", config.Simulation.Founders)
	}
	if config.Simulation.Horizon != 500 {
		t.Errorf("expected Horizon 500, got %f", config.Simulation.Horizon)
	}
	if config.Simulation.Seed != 7 {
		t.Errorf("expected Seed 7, got %d", config.Simulation.Seed)
	}
	if config.Simulation.MatePolicy != "selective" {
		t.Errorf("expected MatePolicy 'selective', got '%s'", config.Simulation.MatePolicy)
	}
	if config.Simulation.MaxDepth != 300 {
		t.Errorf("expected MaxDepth 300, got %f", config.Simulation.MaxDepth)
	}
	if config.AgeModel.AccidentRate != 0.02 {
		t.Errorf("expected AccidentRate 0.02, got %f", config.AgeModel.AccidentRate)
	}
	// Unset keys keep their defaults
	if config.AgeModel.DeathRate != 12.5 {
		t.Errorf("expected DeathRate default 12.5, got %f", config.AgeModel.DeathRate)
	}
	if config.Simulation.SampleInterval != 100 {
		t.Errorf("expected SampleInterval default 100, got %f", config.Simulation.SampleInterval)
	}
	if config.Store.Enabled {
		t.Error("expected Store.Enabled to be false")
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  dir: ${TEST_PEDIGREE_HOME}/data
metrics:
  textfile: ${TEST_PEDIGREE_HOME}/pedigree.prom
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("TEST_PEDIGREE_HOME", "/srv/pedigree")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Store.Dir != "/srv/pedigree/data" {
		t.Errorf("expected Store.Dir '/srv/pedigree/data', got '%s'", config.Store.Dir)
	}
	if config.Metrics.Textfile != "/srv/pedigree/pedigree.prom" {
		t.Errorf("expected Metrics.Textfile expanded, got '%s'", config.Metrics.Textfile)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PEDIGREE_FOUNDERS", "64")
	t.Setenv("PEDIGREE_HORIZON", "150.5")
	t.Setenv("PEDIGREE_SEED", "99")
	t.Setenv("PEDIGREE_FIDELITY", "0.25")
	t.Setenv("PEDIGREE_MATE_POLICY", "selective")
	t.Setenv("PEDIGREE_SAMPLE_INTERVAL", "10")
	t.Setenv("PEDIGREE_MAX_DEPTH", "40")
	t.Setenv("PEDIGREE_STORE_ENABLED", "0")
	t.Setenv("PEDIGREE_STORE_DIR", "/tmp/runs")
	t.Setenv("PEDIGREE_METRICS_TEXTFILE", "/tmp/p.prom")

	config := Default()
	applyEnvOverrides(config)

	s := config.Simulation
	if s.Founders != 64 || s.Horizon != 150.5 || s.Seed != 99 {
		t.Errorf("unexpected run overrides: %+v", s)
	}
	if s.Fidelity != 0.25 || s.MatePolicy != "selective" {
		t.Errorf("unexpected mating overrides: fidelity=%f policy=%s", s.Fidelity, s.MatePolicy)
	}
	if s.SampleInterval != 10 || s.MaxDepth != 40 {
		t.Errorf("unexpected sampling overrides: interval=%f depth=%f", s.SampleInterval, s.MaxDepth)
	}
	if config.Store.Enabled {
		t.Error("expected Store.Enabled to be false")
	}
	if config.Store.Dir != "/tmp/runs" {
		t.Errorf("expected Store.Dir '/tmp/runs', got '%s'", config.Store.Dir)
	}
	if config.Metrics.Textfile != "/tmp/p.prom" {
		t.Errorf("expected Metrics.Textfile '/tmp/p.prom', got '%s'", config.Metrics.Textfile)
	}
}

func TestEnvOverrides_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("PEDIGREE_FOUNDERS", "many")
	t.Setenv("PEDIGREE_SEED", "-1")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Founders != 1000 {
		t.Errorf("expected Founders to stay 1000, got %d", config.Simulation.Founders)
	}
	if config.Simulation.Seed != 42 {
		t.Errorf("expected Seed to stay 42, got %d", config.Simulation.Seed)
	}
}

func TestEnvOverrides_LogLevel(t *testing.T) {
	t.Setenv("PEDIGREE_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
}

func TestLoadPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte("simulation:\n  founders: 12\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PEDIGREE_HORIZON", "33")

	config, err := LoadPath(configPath)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	if config.Simulation.Founders != 12 {
		t.Errorf("expected Founders 12, got %d", config.Simulation.Founders)
	}
	if config.Simulation.Horizon != 33 {
		t.Errorf("expected env override Horizon 33, got %f", config.Simulation.Horizon)
	}
}

func TestLoad_UsesHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(home, ".pedigree"), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(home, ".pedigree", "config.yaml"), []byte("simulation:\n  seed: 5\n"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadPath("")
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	if config.Simulation.Seed != 5 {
		t.Errorf("expected Seed 5 from home config, got %d", config.Simulation.Seed)
	}
}

func TestValidate_Valid(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PedigreeConfig)
	}{
		{"zero founders", func(c *PedigreeConfig) { c.Simulation.Founders = 0 }},
		{"negative horizon", func(c *PedigreeConfig) { c.Simulation.Horizon = -1 }},
		{"fidelity below 0", func(c *PedigreeConfig) { c.Simulation.Fidelity = -0.1 }},
		{"fidelity above 1", func(c *PedigreeConfig) { c.Simulation.Fidelity = 1.5 }},
		{"negative sample interval", func(c *PedigreeConfig) { c.Simulation.SampleInterval = -5 }},
		{"negative max depth", func(c *PedigreeConfig) { c.Simulation.MaxDepth = -1 }},
		{"too many founders", func(c *PedigreeConfig) { c.Simulation.Founders = 2_000_000 }},
		{"horizon too long", func(c *PedigreeConfig) { c.Simulation.Horizon = 1e9 }},
		{"tiny sample interval", func(c *PedigreeConfig) { c.Simulation.SampleInterval = 1e-12 }},
		{"inverted female window", func(c *PedigreeConfig) { c.Simulation.MinMatingAgeFemale = 60 }},
		{"inverted male window", func(c *PedigreeConfig) { c.Simulation.MaxMatingAgeMale = 10 }},
		{"unknown mate policy", func(c *PedigreeConfig) { c.Simulation.MatePolicy = "lottery" }},
		{"unknown lineage", func(c *PedigreeConfig) { c.Simulation.Lineage = "cousins" }},
		{"zero age scale", func(c *PedigreeConfig) { c.AgeModel.AgeScale = 0 }},
		{"unknown log level", func(c *PedigreeConfig) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	validLevels := []string{"", "info", "debug", "trace"}

	for _, level := range validLevels {
		t.Run(level, func(t *testing.T) {
			config := Default()
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
simulation:
  founders: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
