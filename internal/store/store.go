// Package store defines the RunStore interface for persisting simulation
// runs and their trajectories.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/runner"
)

var (
	// ErrNotFound is returned when no run matches an ID.
	ErrNotFound = errors.New("run not found")

	// ErrAmbiguousID is returned when an ID prefix matches several runs.
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// Run is a stored simulation result.
type Run struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Result    *runner.Result `json:"result"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID               string        `json:"id"`
	CreatedAt        time.Time     `json:"created_at"`
	Seed             uint64        `json:"seed"`
	Founders         int           `json:"founders"`
	Horizon          float64       `json:"horizon"`
	Population       int           `json:"population"`
	Individuals      int           `json:"individuals"`
	Events           int           `json:"events"`
	PaternalLineages int           `json:"paternal_lineages"`
	MaternalLineages int           `json:"maternal_lineages"`
	Duration         time.Duration `json:"duration"`
}

// RunStore defines the interface for storing and querying runs.
type RunStore interface {
	// SaveRun stores a result and returns its new run ID.
	SaveRun(ctx context.Context, res *runner.Result) (string, error)

	// GetRun returns the run whose ID equals or uniquely starts with id.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns summaries, newest first. limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteRun removes a run and its trajectories.
	DeleteRun(ctx context.Context, id string) error

	Close() error
}

// summarize builds the listing view of a result.
func summarize(id string, created time.Time, res *runner.Result) RunSummary {
	return RunSummary{
		ID:               id,
		CreatedAt:        created,
		Seed:             res.Params.Seed,
		Founders:         res.Params.Founders,
		Horizon:          res.Params.Horizon,
		Population:       res.Population,
		Individuals:      res.Individuals,
		Events:           res.Events,
		PaternalLineages: coalescence.Remaining(res.Paternal),
		MaternalLineages: coalescence.Remaining(res.Maternal),
		Duration:         res.Duration,
	}
}
