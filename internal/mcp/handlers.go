package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/pedigree/internal/backup"
	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/constants"
	"github.com/nvandessel/pedigree/internal/logging"
	"github.com/nvandessel/pedigree/internal/pathutil"
	"github.com/nvandessel/pedigree/internal/ratelimit"
	"github.com/nvandessel/pedigree/internal/runner"
	"github.com/nvandessel/pedigree/internal/simulator"
	"github.com/nvandessel/pedigree/internal/store"
	"github.com/nvandessel/pedigree/internal/visualization"
)

const (
	latestRunURI   = "pedigree://runs/latest"
	runURIPrefix   = "pedigree://runs/"
	runURITemplate = "pedigree://runs/{id}"
)

// registerTools registers all pedigree MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pedigree_simulate",
		Description: "Run a pedigree simulation and retrace the paternal and maternal lineages of the survivors",
	}, s.handlePedigreeSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pedigree_runs",
		Description: "List stored simulation runs, newest first",
	}, s.handlePedigreeRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pedigree_show",
		Description: "Show a stored run as JSON, or its lineage trajectories as CSV or an SVG chart",
	}, s.handlePedigreeShow)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pedigree_delete",
		Description: "Delete a stored run and its trajectories",
	}, s.handlePedigreeDelete)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pedigree_backup",
		Description: "Archive every stored run to a compressed, checksummed file under .pedigree/backups",
	}, s.handlePedigreeBackup)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "pedigree_restore",
		Description: "Restore runs from an archive under .pedigree/backups; restored runs get new IDs",
	}, s.handlePedigreeRestore)

	return nil
}

// registerResources registers MCP resources for stored runs.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         latestRunURI,
		Name:        "pedigree-latest-run",
		Description: "Summary of the most recent simulation run.",
		MIMEType:    "text/markdown",
	}, s.handleLatestRunResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURITemplate,
		Name:        "pedigree-run",
		Description: "Full result of a stored run as JSON.",
		MIMEType:    "application/json",
	}, s.handleRunResource)

	return nil
}

// simulateParams layers the tool arguments over the configured parameters.
func (s *Server) simulateParams(args PedigreeSimulateInput) runner.Params {
	p := runner.ParamsFromConfig(s.config)
	if args.Founders > 0 {
		p.Founders = args.Founders
	}
	if args.Horizon > 0 {
		p.Horizon = args.Horizon
	}
	if args.Seed != nil {
		p.Seed = *args.Seed
	}
	if args.Fidelity != nil {
		p.Simulation.Fidelity = *args.Fidelity
	}
	if args.MatePolicy != "" {
		p.Simulation.MatePolicy = simulator.MatePolicy(args.MatePolicy)
	}
	if args.SampleInterval != nil {
		p.SampleInterval = *args.SampleInterval
	}
	if args.MaxDepth != nil {
		p.MaxDepth = *args.MaxDepth
	}
	if args.Lineage != "" {
		p.Lineage = constants.Lineage(args.Lineage)
	}
	return p
}

func (s *Server) handlePedigreeSimulate(ctx context.Context, req *sdk.CallToolRequest, args PedigreeSimulateInput) (_ *sdk.CallToolResult, _ PedigreeSimulateOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool("pedigree_simulate", start, retErr, runID, toolParams(map[string]any{
			"founders": args.Founders, "horizon": args.Horizon, "seed": args.Seed,
			"fidelity": args.Fidelity, "mate_policy": args.MatePolicy,
			"sample_interval": args.SampleInterval, "max_depth": args.MaxDepth,
			"lineage": args.Lineage,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pedigree_simulate"); err != nil {
		return nil, PedigreeSimulateOutput{}, err
	}

	params := s.simulateParams(args)
	if err := params.Validate(); err != nil {
		return nil, PedigreeSimulateOutput{}, fmt.Errorf("invalid arguments: %w", err)
	}

	events := logging.NewEventLogger(s.dataDir, s.config.Logging.Level)
	defer events.Close()

	res, err := runner.Run(ctx, params,
		runner.WithLogger(s.logger),
		runner.WithEventLogger(events),
		runner.WithMetrics(s.metrics))
	if err != nil {
		return nil, PedigreeSimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	runID, err = s.store.SaveRun(ctx, res)
	if err != nil {
		return nil, PedigreeSimulateOutput{}, fmt.Errorf("failed to save run: %w", err)
	}

	if path := s.config.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			s.logger.Warn("failed to write metrics textfile", "path", path, "error", err)
		}
	}

	out := PedigreeSimulateOutput{
		RunID:            runID,
		Population:       res.Population,
		Individuals:      res.Individuals,
		Events:           res.Events,
		Offspring:        res.Offspring,
		NoMate:           res.NoMate,
		PaternalLineages: coalescence.Remaining(res.Paternal),
		MaternalLineages: coalescence.Remaining(res.Maternal),
		Paternal:         res.Paternal,
		Maternal:         res.Maternal,
		DurationMs:       res.Duration.Milliseconds(),
	}
	out.Message = fmt.Sprintf("Run %s: %d of %d individuals alive at t=%g, %d paternal and %d maternal lineages",
		runID, res.Population, res.Individuals, res.FinalTime, out.PaternalLineages, out.MaternalLineages)
	return nil, out, nil
}

func (s *Server) handlePedigreeRuns(ctx context.Context, req *sdk.CallToolRequest, args PedigreeRunsInput) (_ *sdk.CallToolResult, _ PedigreeRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("pedigree_runs", start, retErr, "", toolParams(map[string]any{"limit": args.Limit}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pedigree_runs"); err != nil {
		return nil, PedigreeRunsOutput{}, err
	}

	summaries, err := s.store.ListRuns(ctx, args.Limit)
	if err != nil {
		return nil, PedigreeRunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]RunListItem, 0, len(summaries))
	for _, sum := range summaries {
		runs = append(runs, runListItem(sum))
	}
	return nil, PedigreeRunsOutput{Runs: runs, Count: len(runs)}, nil
}

func (s *Server) handlePedigreeShow(ctx context.Context, req *sdk.CallToolRequest, args PedigreeShowInput) (_ *sdk.CallToolResult, _ PedigreeShowOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool("pedigree_show", start, retErr, runID, toolParams(map[string]any{"format": args.Format}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pedigree_show"); err != nil {
		return nil, PedigreeShowOutput{}, err
	}
	if args.ID == "" {
		return nil, PedigreeShowOutput{}, fmt.Errorf("id is required")
	}

	run, err := s.store.GetRun(ctx, args.ID)
	if err != nil {
		return nil, PedigreeShowOutput{}, err
	}
	runID = run.ID

	format := args.Format
	if format == "" {
		format = "json"
	}
	out := PedigreeShowOutput{ID: run.ID, Format: format}

	var buf bytes.Buffer
	switch visualization.Format(format) {
	case "json":
		out.Result = run.Result
		return nil, out, nil
	case visualization.FormatCSV:
		err = visualization.WriteCSV(&buf, run.Result)
	case visualization.FormatSVG:
		err = visualization.RenderSVG(&buf, run.Result, visualization.DefaultChartOptions())
	default:
		return nil, PedigreeShowOutput{}, fmt.Errorf("invalid format %q (valid: json, csv, svg)", format)
	}
	if err != nil {
		return nil, PedigreeShowOutput{}, fmt.Errorf("failed to render run: %w", err)
	}
	out.Content = buf.String()
	return nil, out, nil
}

func (s *Server) handlePedigreeDelete(ctx context.Context, req *sdk.CallToolRequest, args PedigreeDeleteInput) (_ *sdk.CallToolResult, _ PedigreeDeleteOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool("pedigree_delete", start, retErr, runID, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pedigree_delete"); err != nil {
		return nil, PedigreeDeleteOutput{}, err
	}
	if args.ID == "" {
		return nil, PedigreeDeleteOutput{}, fmt.Errorf("id is required")
	}

	// Resolve prefixes first so the reply names the full ID.
	run, err := s.store.GetRun(ctx, args.ID)
	if err != nil {
		return nil, PedigreeDeleteOutput{}, err
	}
	runID = run.ID
	if err := s.store.DeleteRun(ctx, runID); err != nil {
		return nil, PedigreeDeleteOutput{}, fmt.Errorf("failed to delete run: %w", err)
	}
	return nil, PedigreeDeleteOutput{ID: runID, Message: fmt.Sprintf("Deleted run %s", runID)}, nil
}

func (s *Server) handlePedigreeBackup(ctx context.Context, req *sdk.CallToolRequest, args PedigreeBackupInput) (_ *sdk.CallToolResult, _ PedigreeBackupOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("pedigree_backup", start, retErr, "", toolParams(map[string]any{
			"output_path": pathutil.RedactPath(args.OutputPath),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pedigree_backup"); err != nil {
		return nil, PedigreeBackupOutput{}, err
	}

	path := args.OutputPath
	if path == "" {
		path = backup.GeneratePath(backup.Dir(s.dataDir))
	}
	if err := s.validateBackupPath(path); err != nil {
		return nil, PedigreeBackupOutput{}, err
	}

	archive, err := backup.Backup(ctx, s.store, path)
	if err != nil {
		return nil, PedigreeBackupOutput{}, fmt.Errorf("backup failed: %w", err)
	}
	return nil, PedigreeBackupOutput{
		Path:    path,
		Runs:    len(archive.Runs),
		Message: fmt.Sprintf("Backed up %d runs to %s", len(archive.Runs), path),
	}, nil
}

func (s *Server) handlePedigreeRestore(ctx context.Context, req *sdk.CallToolRequest, args PedigreeRestoreInput) (_ *sdk.CallToolResult, _ PedigreeRestoreOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("pedigree_restore", start, retErr, "", toolParams(map[string]any{
			"input_path": pathutil.RedactPath(args.InputPath),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "pedigree_restore"); err != nil {
		return nil, PedigreeRestoreOutput{}, err
	}
	if err := s.validateBackupPath(args.InputPath); err != nil {
		return nil, PedigreeRestoreOutput{}, err
	}

	res, err := backup.Restore(ctx, s.store, args.InputPath)
	if err != nil {
		return nil, PedigreeRestoreOutput{}, fmt.Errorf("restore failed: %w", err)
	}
	return nil, PedigreeRestoreOutput{
		Restored: res.Restored,
		IDs:      res.IDs,
		Message:  fmt.Sprintf("Restored %d runs", res.Restored),
	}, nil
}

// validateBackupPath keeps archive reads and writes inside the backup
// directories.
func (s *Server) validateBackupPath(path string) error {
	allowed, err := pathutil.AllowedBackupDirs(s.dataDir)
	if err != nil {
		return err
	}
	return pathutil.ValidatePath(path, allowed)
}

// handleLatestRunResource summarizes the newest stored run as markdown.
func (s *Server) handleLatestRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	runs, err := s.store.ListRuns(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var text string
	if len(runs) == 0 {
		text = "No simulation runs stored yet. Use the pedigree_simulate tool to start one.\n"
	} else {
		text = formatRunSummary(runs[0])
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      latestRunURI,
				MIMEType: "text/markdown",
				Text:     text,
			},
		},
	}, nil
}

// handleRunResource returns a stored run as JSON.
// URI format: pedigree://runs/{id}
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, runURIPrefix)
	if id == "" || id == uri {
		return nil, sdk.ResourceNotFoundError(uri)
	}

	run, err := s.store.GetRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, sdk.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

func formatRunSummary(r store.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", r.ID)
	fmt.Fprintf(&b, "- Created: %s\n", r.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Seed: %d\n", r.Seed)
	fmt.Fprintf(&b, "- Founders: %d, horizon: %g years\n", r.Founders, r.Horizon)
	fmt.Fprintf(&b, "- Alive at horizon: %d of %d individuals\n", r.Population, r.Individuals)
	fmt.Fprintf(&b, "- Remaining lineages: %d paternal, %d maternal\n", r.PaternalLineages, r.MaternalLineages)
	return b.String()
}
