package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pedigree/internal/coalescence"
	"github.com/nvandessel/pedigree/internal/config"
	"github.com/nvandessel/pedigree/internal/logging"
	"github.com/nvandessel/pedigree/internal/metrics"
	"github.com/nvandessel/pedigree/internal/runner"
	"github.com/nvandessel/pedigree/internal/store"
	"github.com/nvandessel/pedigree/internal/visualization"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and retrace the survivors' lineages",
		Long: `Simulate a population from its founders up to the horizon, then walk the
paternal and maternal ancestry of everyone alive at the end.

Flags override the configuration file and PEDIGREE_* environment variables.

Examples:
  pedigree run                                  # Configured defaults
  pedigree run --founders 500 --horizon 3000    # Bigger, longer run
  pedigree run --seed 7 --csv out.csv --svg out.svg
  pedigree run --html report.html --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			noSave, _ := cmd.Flags().GetBool("no-save")
			csvPath, _ := cmd.Flags().GetString("csv")
			svgPath, _ := cmd.Flags().GetString("svg")
			htmlPath, _ := cmd.Flags().GetString("html")
			open, _ := cmd.Flags().GetBool("open")

			ctx, cancel := context.WithCancel(commandContext(cmd))
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					cancel()
				case <-ctx.Done():
				}
			}()

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			dataDir := store.ResolveDataDir(root, cfg.Store.Dir)
			events := logging.NewEventLogger(dataDir, cfg.Logging.Level)
			defer events.Close()
			m := metrics.New()

			res, err := runner.Run(ctx, runner.ParamsFromConfig(cfg),
				runner.WithLogger(logger),
				runner.WithEventLogger(events),
				runner.WithMetrics(m))
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			var runID string
			if cfg.Store.Enabled && !noSave {
				s, err := openRunStore(cmd, cfg)
				if err != nil {
					return err
				}
				defer s.Close()
				runID, err = s.SaveRun(ctx, res)
				if err != nil {
					return fmt.Errorf("save run: %w", err)
				}
			}

			if path := cfg.Metrics.Textfile; path != "" {
				if err := m.WriteTextfile(path); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			if err := writeRunOutputs(res, runID, csvPath, svgPath, htmlPath); err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{"run_id": runID, "result": res}); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			} else {
				printRunSummary(cmd.OutOrStdout(), runID, res)
			}

			if open {
				target := htmlPath
				if target == "" {
					target = svgPath
				}
				if target == "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "--open needs --html or --svg")
				} else if err := visualization.OpenBrowser(target); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, target)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("founders", 0, "Number of founders (default from config)")
	cmd.Flags().Float64("horizon", 0, "Simulated years to run (default from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed (default from config)")
	cmd.Flags().Float64("fidelity", 0, "Probability that a mother looks for a new partner")
	cmd.Flags().String("mate-policy", "", "Partner search: uniform or selective")
	cmd.Flags().Float64("sample-interval", 0, "Years between population samples, 0 disables sampling")
	cmd.Flags().Float64("max-depth", 0, "Largest parent-child age gap followed by the lineage walk, 0 means unbounded")
	cmd.Flags().String("lineage", "", "Trajectories to compute: paternal, maternal or both")
	cmd.Flags().String("log-level", "", "Log level: info, debug or trace")
	cmd.Flags().String("csv", "", "Write the trajectories and population samples as CSV")
	cmd.Flags().String("svg", "", "Write the chart as SVG")
	cmd.Flags().String("html", "", "Write a self-contained HTML report")
	cmd.Flags().Bool("open", false, "Open the HTML report (or SVG chart) in a browser")
	cmd.Flags().Bool("no-save", false, "Don't store the run")

	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.PedigreeConfig) {
	flags := cmd.Flags()
	s := &cfg.Simulation
	if flags.Changed("founders") {
		s.Founders, _ = flags.GetInt("founders")
	}
	if flags.Changed("horizon") {
		s.Horizon, _ = flags.GetFloat64("horizon")
	}
	if flags.Changed("seed") {
		s.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("fidelity") {
		s.Fidelity, _ = flags.GetFloat64("fidelity")
	}
	if flags.Changed("mate-policy") {
		s.MatePolicy, _ = flags.GetString("mate-policy")
	}
	if flags.Changed("sample-interval") {
		s.SampleInterval, _ = flags.GetFloat64("sample-interval")
	}
	if flags.Changed("max-depth") {
		s.MaxDepth, _ = flags.GetFloat64("max-depth")
	}
	if flags.Changed("lineage") {
		s.Lineage, _ = flags.GetString("lineage")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
}

// writeRunOutputs writes the requested CSV, SVG and HTML files.
func writeRunOutputs(res *runner.Result, runID, csvPath, svgPath, htmlPath string) error {
	if csvPath != "" {
		var buf bytes.Buffer
		if err := visualization.WriteCSV(&buf, res); err != nil {
			return fmt.Errorf("render CSV: %w", err)
		}
		if err := os.WriteFile(csvPath, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write CSV file: %w", err)
		}
	}
	if svgPath != "" {
		var buf bytes.Buffer
		if err := visualization.RenderSVG(&buf, res, visualization.DefaultChartOptions()); err != nil {
			return fmt.Errorf("render SVG: %w", err)
		}
		if err := os.WriteFile(svgPath, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write SVG file: %w", err)
		}
	}
	if htmlPath != "" {
		html, err := visualization.RenderHTML(runID, res)
		if err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
		if err := os.WriteFile(htmlPath, html, 0644); err != nil {
			return fmt.Errorf("write HTML file: %w", err)
		}
	}
	return nil
}

func printRunSummary(w io.Writer, runID string, res *runner.Result) {
	if runID != "" {
		fmt.Fprintf(w, "Run %s\n", runID)
	}
	p := res.Params
	fmt.Fprintf(w, "  Founders:     %d (seed %d)\n", p.Founders, p.Seed)
	fmt.Fprintf(w, "  Horizon:      %g years\n", res.FinalTime)
	fmt.Fprintf(w, "  Individuals:  %d born, %d alive (%d male, %d female)\n",
		res.Individuals, res.Population, res.Males, res.Females)
	fmt.Fprintf(w, "  Events:       %d (%d without a mate)\n", res.Events, res.NoMate)
	if res.Paternal != nil {
		fmt.Fprintf(w, "  Paternal:     %d lineages -> %d\n", initialLineages(res.Paternal), coalescence.Remaining(res.Paternal))
	}
	if res.Maternal != nil {
		fmt.Fprintf(w, "  Maternal:     %d lineages -> %d\n", initialLineages(res.Maternal), coalescence.Remaining(res.Maternal))
	}
	fmt.Fprintf(w, "  Duration:     %v\n", res.Duration)
}

func initialLineages(points []coalescence.Point) int {
	if len(points) == 0 {
		return 0
	}
	return points[0].Lineages
}

// commandContext returns the command's context, or a background one when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
