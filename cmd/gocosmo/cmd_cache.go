package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/astrika/gocosmo/internal/backup"
	"github.com/astrika/gocosmo/internal/config"
	"github.com/astrika/gocosmo/internal/store"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the distance table cache",
	}
	cmd.AddCommand(
		newCacheListCmd(),
		newCacheClearCmd(),
		newCacheExportCmd(),
		newCacheImportCmd(),
		newCachePruneCmd(),
	)
	return cmd
}

func openCacheStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		dir, err = config.Dir()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dir)
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached distance tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			st, err := openCacheStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached distance tables (%d):\n\n", len(runs))
			for i, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s  model=%s  zmax=%g  %s\n",
					i+1, r.ID[:12], r.Model, r.ZMax, r.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached distance tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openCacheStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}
}

// exportDir resolves the export directory: the flag if set, otherwise
// ~/.gocosmo/backups.
func exportDir(cmd *cobra.Command) (string, error) {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir, nil
	}
	return backup.DefaultDir()
}

func newCacheExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all cached distance tables to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			st, err := openCacheStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if out == "" {
				dir, err := exportDir(cmd)
				if err != nil {
					return err
				}
				out = backup.GeneratePath(dir)
			}

			exported, err := backup.Export(cmd.Context(), st, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tables to %s\n", len(exported.Runs), out)
			return nil
		},
	}
	cmd.Flags().String("out", "", "Output file (default: timestamped file in the export directory)")
	cmd.Flags().String("dir", "", "Export directory (default ~/.gocosmo/backups)")
	return cmd
}

func newCacheImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import distance tables from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			replace, _ := cmd.Flags().GetBool("replace")

			st, err := openCacheStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			mode := backup.ImportMerge
			if replace {
				mode = backup.ImportReplace
			}
			res, err := backup.Import(cmd.Context(), st, args[0], mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tables (%d skipped).\n", res.Restored, res.Skipped)
			return nil
		},
	}
	cmd.Flags().Bool("replace", false, "Clear the cache before importing")
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old cache export files",
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			dir, err := exportDir(cmd)
			if err != nil {
				return err
			}

			var policies []backup.RetentionPolicy
			if keep > 0 {
				policies = append(policies, &backup.CountPolicy{MaxCount: keep})
			}
			if maxAge != "" {
				d, err := backup.ParseDuration(maxAge)
				if err != nil {
					return err
				}
				policies = append(policies, &backup.AgePolicy{MaxAge: d})
			}
			if len(policies) == 0 {
				return fmt.Errorf("nothing to prune: pass --keep and/or --max-age")
			}

			deleted, err := backup.ApplyRetention(dir, &backup.CompositePolicy{Policies: policies})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d old exports.\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().Int("keep", 0, "Keep the N most recent exports")
	cmd.Flags().String("max-age", "", "Keep exports newer than this age (e.g. 30d, 2w, 720h)")
	cmd.Flags().String("dir", "", "Export directory (default ~/.gocosmo/backups)")
	return cmd
}
