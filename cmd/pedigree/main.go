package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pedigree/internal/config"
	"github.com/nvandessel/pedigree/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pedigree",
		Short: "Pedigree simulation and lineage coalescence",
		Long: `pedigree simulates a sexually reproducing population forward in time and
retraces the paternal (Y chromosome) and maternal (mitochondrial) lineages
of the survivors back to their common ancestors.

Runs are stored in .pedigree/pedigree.db and can be listed, charted and
served to MCP clients.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.pedigree/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newChartCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration named by --config, or the default one.
func loadConfig(cmd *cobra.Command) (*config.PedigreeConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openRunStore opens the SQLite run store under the project root.
func openRunStore(cmd *cobra.Command, cfg *config.PedigreeConfig) (*store.SQLiteRunStore, error) {
	root, _ := cmd.Flags().GetString("root")
	s, err := store.NewSQLiteRunStore(store.ResolveDataDir(root, cfg.Store.Dir))
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return s, nil
}
