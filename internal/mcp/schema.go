package mcp

import (
	"time"

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/runner"
	"github.com/nvandessel/pedigree/internal/store"
)

// PedigreeSimulateInput defines the input for the pedigree_simulate tool.
// Unset fields fall back to the loaded configuration.
type PedigreeSimulateInput struct {
	Founders       int      `json:"founders,omitempty" jsonschema:"Number of founders born at time zero"`
	Horizon        float64  `json:"horizon,omitempty" jsonschema:"Simulated years to run"`
	Seed           *uint64  `json:"seed,omitempty" jsonschema:"Seed of the pseudo-random source"`
	Fidelity       *float64 `json:"fidelity,omitempty" jsonschema:"Probability (0.0-1.0) that a mother looks for a new partner"`
	MatePolicy     string   `json:"mate_policy,omitempty" jsonschema:"Partner search: uniform or selective"`
	SampleInterval *float64 `json:"sample_interval,omitempty" jsonschema:"Spacing of population size samples, 0 disables sampling"`
	MaxDepth       *float64 `json:"max_depth,omitempty" jsonschema:"Stop each lineage walk once a generation spans more than this many years, 0 means unbounded"`
	Lineage        string   `json:"lineage,omitempty" jsonschema:"Trajectories to compute: paternal, maternal or both"`
}

// PedigreeSimulateOutput defines the output for the pedigree_simulate tool.
type PedigreeSimulateOutput struct {
	RunID            string              `json:"run_id" jsonschema:"ID of the stored run"`
	Population       int                 `json:"population" jsonschema:"Individuals alive at the horizon"`
	Individuals      int                 `json:"individuals" jsonschema:"Individuals ever born, founders included"`
	Events           int                 `json:"events" jsonschema:"Dispatched events"`
	Offspring        int                 `json:"offspring" jsonschema:"Children born during the run"`
	NoMate           int                 `json:"no_mate" jsonschema:"Reproduction attempts that found no partner"`
	PaternalLineages int                 `json:"paternal_lineages" jsonschema:"Distinct paternal lineages left at the end of the walk"`
	MaternalLineages int                 `json:"maternal_lineages" jsonschema:"Distinct maternal lineages left at the end of the walk"`
	Paternal         []coalescence.Point `json:"paternal,omitempty" jsonschema:"Paternal trajectory as (time before horizon, lineages) points"`
	Maternal         []coalescence.Point `json:"maternal,omitempty" jsonschema:"Maternal trajectory as (time before horizon, lineages) points"`
	DurationMs       int64               `json:"duration_ms" jsonschema:"Wall-clock run time in milliseconds"`
	Message          string              `json:"message" jsonschema:"Human-readable result message"`
}

// PedigreeRunsInput defines the input for the pedigree_runs tool.
type PedigreeRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to list, newest first (default: all)"`
}

// PedigreeRunsOutput defines the output for the pedigree_runs tool.
type PedigreeRunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Stored runs"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
}

// RunListItem is the listing view of a stored run.
type RunListItem struct {
	ID               string  `json:"id"`
	CreatedAt        string  `json:"created_at"`
	Seed             uint64  `json:"seed"`
	Founders         int     `json:"founders"`
	Horizon          float64 `json:"horizon"`
	Population       int     `json:"population"`
	Individuals      int     `json:"individuals"`
	PaternalLineages int     `json:"paternal_lineages"`
	MaternalLineages int     `json:"maternal_lineages"`
}

func runListItem(s store.RunSummary) RunListItem {
	return RunListItem{
		ID:               s.ID,
		CreatedAt:        s.CreatedAt.UTC().Format(time.RFC3339),
		Seed:             s.Seed,
		Founders:         s.Founders,
		Horizon:          s.Horizon,
		Population:       s.Population,
		Individuals:      s.Individuals,
		PaternalLineages: s.PaternalLineages,
		MaternalLineages: s.MaternalLineages,
	}
}

// PedigreeShowInput defines the input for the pedigree_show tool.
type PedigreeShowInput struct {
	ID     string `json:"id" jsonschema:"Run ID or unique ID prefix"`
	Format string `json:"format,omitempty" jsonschema:"Output format: json (default), csv or svg"`
}

// PedigreeShowOutput defines the output for the pedigree_show tool.
type PedigreeShowOutput struct {
	ID      string         `json:"id" jsonschema:"Full run ID"`
	Format  string         `json:"format" jsonschema:"Format of the rendered output"`
	Result  *runner.Result `json:"result,omitempty" jsonschema:"Full run result (json format)"`
	Content string         `json:"content,omitempty" jsonschema:"Rendered CSV or SVG"`
}

// PedigreeDeleteInput defines the input for the pedigree_delete tool.
type PedigreeDeleteInput struct {
	ID string `json:"id" jsonschema:"Run ID or unique ID prefix"`
}

// PedigreeDeleteOutput defines the output for the pedigree_delete tool.
type PedigreeDeleteOutput struct {
	ID      string `json:"id" jsonschema:"Deleted run ID"`
	Message string `json:"message" jsonschema:"Human-readable result message"`
}

// PedigreeBackupInput defines the input for the pedigree_backup tool.
type PedigreeBackupInput struct {
	OutputPath string `json:"output_path,omitempty" jsonschema:"Archive path inside .pedigree/backups (default: timestamped file there)"`
}

// PedigreeBackupOutput defines the output for the pedigree_backup tool.
type PedigreeBackupOutput struct {
	Path    string `json:"path" jsonschema:"Path of the written archive"`
	Runs    int    `json:"runs" jsonschema:"Number of archived runs"`
	Message string `json:"message" jsonschema:"Human-readable result message"`
}

// PedigreeRestoreInput defines the input for the pedigree_restore tool.
type PedigreeRestoreInput struct {
	InputPath string `json:"input_path" jsonschema:"Archive path inside .pedigree/backups"`
}

// PedigreeRestoreOutput defines the output for the pedigree_restore tool.
type PedigreeRestoreOutput struct {
	Restored int      `json:"restored" jsonschema:"Number of restored runs"`
	IDs      []string `json:"ids" jsonschema:"New IDs of the restored runs"`
	Message  string   `json:"message" jsonschema:"Human-readable result message"`
}
