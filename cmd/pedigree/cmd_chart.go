package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pedigree/internal/runner"
	"github.com/nvandessel/pedigree/internal/visualization"
)

func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart [id]",
		Short: "Chart a stored run",
		Long: `Render the population and lineage trajectories of a stored run as SVG,
CSV or a self-contained HTML report. Without an ID the newest run is used.

Examples:
  pedigree chart                     # Newest run as SVG on stdout
  pedigree chart 3f2a --format html  # HTML report, opened in a browser
  pedigree chart --serve             # Serve the report on localhost`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")
			serve, _ := cmd.Flags().GetBool("serve")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openRunStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := commandContext(cmd)
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				latest, err := s.ListRuns(ctx, 1)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
				if len(latest) == 0 {
					return fmt.Errorf("no runs stored, use 'pedigree run' first")
				}
				id = latest[0].ID
			}

			run, err := s.GetRun(ctx, id)
			if err != nil {
				return err
			}

			if serve {
				return runChartServer(cmd, ctx, run.ID, run.Result, noOpen)
			}

			switch visualization.Format(format) {
			case visualization.FormatSVG:
				return writeChartOutput(cmd, output, func(buf *bytes.Buffer) error {
					return visualization.RenderSVG(buf, run.Result, visualization.DefaultChartOptions())
				})
			case visualization.FormatCSV:
				return writeChartOutput(cmd, output, func(buf *bytes.Buffer) error {
					return visualization.WriteCSV(buf, run.Result)
				})
			case visualization.FormatHTML:
				return writeStaticHTML(cmd, run.ID, run.Result, output, noOpen)
			default:
				return fmt.Errorf("unsupported format %q (use 'svg', 'csv', or 'html')", format)
			}
		},
	}

	cmd.Flags().String("format", "svg", "Output format: svg, csv, or html")
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout, or a temp file for html)")
	cmd.Flags().Bool("no-open", false, "Don't open browser after generating HTML")
	cmd.Flags().Bool("serve", false, "Serve the report on a local HTTP server until Ctrl-C")

	return cmd
}

// writeChartOutput renders into a buffer and writes it to output, or stdout.
func writeChartOutput(cmd *cobra.Command, output string, render func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if output == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write chart file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Chart written to %s\n", output)
	return nil
}

// writeStaticHTML renders the report to a self-contained HTML file.
func writeStaticHTML(cmd *cobra.Command, runID string, res *runner.Result, output string, noOpen bool) error {
	htmlBytes, err := visualization.RenderHTML(runID, res)
	if err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	outPath := output
	if outPath == "" {
		outPath = filepath.Join(os.TempDir(), "pedigree-"+runID[:8]+".html")
	}
	if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
		return fmt.Errorf("write HTML file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outPath)

	if !noOpen {
		if err := visualization.OpenBrowser(outPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
		}
	}
	return nil
}

// runChartServer serves the report on localhost and blocks until Ctrl-C.
func runChartServer(cmd *cobra.Command, ctx context.Context, runID string, res *runner.Result, noOpen bool) error {
	srv := visualization.NewServer(runID, res)

	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			srvCancel()
		case <-srvCtx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && srv.Addr() == "" {
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		srvCancel()
		if err := <-errCh; err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Report server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
