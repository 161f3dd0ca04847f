// Package constants provides named constants used throughout the pedigree codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Mating window constants, in years.
const (
	// MinMatingAgeFemale is the age at which women may first reproduce.
	MinMatingAgeFemale = 16.0

	// MaxMatingAgeFemale is the age after which women no longer reproduce.
	MaxMatingAgeFemale = 50.0

	// MinMatingAgeMale is the age at which men enter the pool of available mates.
	MinMatingAgeMale = 16.0

	// MaxMatingAgeMale is the age at which men leave the pool of available mates.
	MaxMatingAgeMale = 73.0
)

// Relationship constants
const (
	// DefaultFidelity is the probability that a paired individual strays.
	// A mother keeps her current partner with probability 1 - DefaultFidelity.
	DefaultFidelity = 0.1

	// OffspringPerFemale is the expected number of children per woman used to
	// calibrate the reproduction rate. Two keeps the population stationary
	// when everyone reaches mating age.
	OffspringPerFemale = 2.0
)

// Run defaults
const (
	// DefaultFounders is the number of founders seeded at time zero.
	DefaultFounders = 1000

	// DefaultHorizon is the simulated time, in years, at which a run stops.
	DefaultHorizon = 2000.0

	// DefaultSeed seeds the pseudo-random source.
	DefaultSeed = 42

	// DefaultSampleInterval is the spacing, in years, of population size samples.
	DefaultSampleInterval = 100.0
)

// Run bounds. A run is held in memory in full, so requests beyond these
// limits are rejected before any allocation.
const (
	// MaxFounders is the largest founder count accepted for a run.
	MaxFounders = 1_000_000

	// MaxHorizon is the longest simulated time, in years, accepted for a run.
	MaxHorizon = 100_000.0

	// MaxSamples bounds horizon / sample_interval, the number of population
	// samples a run records.
	MaxSamples = 1_000_000
)

// Storage constants
const (
	// DataDirName is the per-project directory holding the run database and traces.
	DataDirName = ".pedigree"

	// DatabaseFile is the SQLite file name inside DataDirName.
	DatabaseFile = "pedigree.db"

	// EventTraceFile is the JSONL event trace written at debug level.
	EventTraceFile = "events.jsonl"
)
