package simulator

import (
	"fmt"

	"github.com/nvandessel/pedigree/internal/constants"
)

// MatePolicy selects how a mother finds a partner when she does not stay
// with her current mate.
type MatePolicy string

const (
	// MatePolicyUniform draws a partner uniformly from the available males.
	MatePolicyUniform MatePolicy = "uniform"

	// MatePolicySelective scans available males in random order and skips
	// those whose own relationship holds them back.
	MatePolicySelective MatePolicy = "selective"
)

// Config holds the demographic parameters of a simulation.
type Config struct {
	// MinMatingAgeFemale and MaxMatingAgeFemale bound the female mating window.
	MinMatingAgeFemale float64

	MaxMatingAgeFemale float64

	// MinMatingAgeMale and MaxMatingAgeMale bound the male mating window.
	MinMatingAgeMale float64

	MaxMatingAgeMale float64

	// Fidelity is the probability that a paired individual strays: an
	// existing partner is kept with probability 1 - Fidelity.
	Fidelity float64

	// MatePolicy selects the partner search. Default: uniform.
	MatePolicy MatePolicy

	// ReproductionRate overrides the calibrated per-female rate when positive.
	// Zero derives it as 2 / expected reproductive span.
	ReproductionRate float64
}

// DefaultConfig returns human-like defaults.
func DefaultConfig() Config {
	return Config{
		MinMatingAgeFemale: constants.MinMatingAgeFemale,
		MaxMatingAgeFemale: constants.MaxMatingAgeFemale,
		MinMatingAgeMale:   constants.MinMatingAgeMale,
		MaxMatingAgeMale:   constants.MaxMatingAgeMale,
		Fidelity:           constants.DefaultFidelity,
		MatePolicy:         MatePolicyUniform,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.MinMatingAgeFemale < 0 || c.MinMatingAgeMale < 0 {
		return fmt.Errorf("mating ages must be non-negative: %w", ErrInvalidArgument)
	}
	if c.MinMatingAgeFemale > c.MaxMatingAgeFemale {
		return fmt.Errorf("female mating window [%g, %g] is empty: %w",
			c.MinMatingAgeFemale, c.MaxMatingAgeFemale, ErrInvalidArgument)
	}
	if c.MinMatingAgeMale > c.MaxMatingAgeMale {
		return fmt.Errorf("male mating window [%g, %g] is empty: %w",
			c.MinMatingAgeMale, c.MaxMatingAgeMale, ErrInvalidArgument)
	}
	if c.Fidelity < 0 || c.Fidelity > 1 {
		return fmt.Errorf("fidelity must be between 0 and 1, got %g: %w", c.Fidelity, ErrInvalidArgument)
	}
	if c.ReproductionRate < 0 {
		return fmt.Errorf("reproduction rate must be non-negative, got %g: %w", c.ReproductionRate, ErrInvalidArgument)
	}
	switch c.MatePolicy {
	case "", MatePolicyUniform, MatePolicySelective:
	default:
		return fmt.Errorf("unknown mate policy %q: %w", c.MatePolicy, ErrInvalidArgument)
	}
	return nil
}
