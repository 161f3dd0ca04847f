package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pedigree/internal/backup"
	"github.com/nvandessel/pedigree/internal/store"
	"github.com/nvandessel/pedigree/internal/visualization"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored runs",
		Long: `List, show and delete runs stored in .pedigree/pedigree.db.

Run IDs may be shortened to any unique prefix.

Examples:
  pedigree runs list --limit 5
  pedigree runs show 3f2a
  pedigree runs show 3f2a --format csv
  pedigree runs delete 3f2a
  pedigree runs backup --keep 5
  pedigree runs restore .pedigree/backups/pedigree-backup-20260101-120000.000.json.gz`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsDeleteCmd(),
		newRunsBackupCmd(),
		newRunsRestoreCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openRunStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(commandContext(cmd), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored. Use 'pedigree run' to start one.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSEED\tFOUNDERS\tHORIZON\tALIVE\tPATERNAL\tMATERNAL")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%g\t%d\t%d\t%d\n",
					r.ID[:8], r.CreatedAt.Local().Format(time.DateTime), r.Seed, r.Founders,
					r.Horizon, r.Population, r.PaternalLineages, r.MaternalLineages)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 0, "Maximum number of runs to list (0 = all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			format, _ := cmd.Flags().GetString("format")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openRunStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(commandContext(cmd), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				format = "json"
			}
			switch format {
			case "text":
				printRunSummary(out, run.ID, run.Result)
				fmt.Fprintf(out, "  Created:      %s\n", run.CreatedAt.Local().Format(time.DateTime))
				return nil
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			case string(visualization.FormatCSV):
				return visualization.WriteCSV(out, run.Result)
			default:
				return fmt.Errorf("unsupported format %q (use 'text', 'json' or 'csv')", format)
			}
		},
	}
	cmd.Flags().String("format", "text", "Output format: text, json or csv")
	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

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
			run, err := s.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteRun(ctx, run.ID); err != nil {
				return fmt.Errorf("delete run: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"deleted": run.ID})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", run.ID)
			return nil
		},
	}
}

func newRunsBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive every stored run to a compressed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")
			output, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openRunStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			dir := backup.Dir(store.ResolveDataDir(root, cfg.Store.Dir))
			if output == "" {
				output = backup.GeneratePath(dir)
			}
			archive, err := backup.Backup(commandContext(cmd), s, output)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var rotated []string
			if keep > 0 {
				rotated, err = backup.Rotate(dir, keep)
				if err != nil {
					return fmt.Errorf("rotate backups: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":    output,
					"runs":    len(archive.Runs),
					"rotated": rotated,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d runs to %s\n", len(archive.Runs), output)
			if len(rotated) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old backups\n", len(rotated))
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Archive path (default: .pedigree/backups/pedigree-backup-<timestamp>.json.gz)")
	cmd.Flags().Int("keep", 0, "Keep only the N newest archives in the backup directory (0 = keep all)")
	return cmd
}

func newRunsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore runs from an archive",
		Long:  `Restore every run of an archive into the store. Restored runs get new IDs.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openRunStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := backup.Restore(commandContext(cmd), s, args[0])
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs\n", res.Restored)
			return nil
		},
	}
}
