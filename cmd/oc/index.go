package oc

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guobin211/opencontext/pkg/search"
)

func newIndexCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and inspect the semantic search index",
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the index from every document in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.AllDocSources(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := app.Indexer.BuildAll(cmd.Context(), docs, func(p search.Progress) {
				fmt.Fprintf(cmd.OutOrStdout(), "[%3d%%] %s: %s\n", p.Percent, p.Phase, p.Message)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d docs, %d chunks, %dms\n", stats.TotalDocs, stats.TotalChunks, stats.ElapsedMs)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Indexer.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chunks=%d last_updated_ms=%d\n", stats.TotalChunks, stats.LastUpdated)
			return nil
		},
	}

	var interval int64
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the debounced index synchronizer until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			if interval > 0 {
				app.Sync.WithInterval(interval)
			}
			app.StartSync(cmd.Context())
			<-cmd.Context().Done()
			return nil
		},
	}
	syncCmd.Flags().Int64Var(&interval, "interval", 0, "flush interval in seconds (default 300)")

	cmd.AddCommand(buildCmd, statusCmd, syncCmd)
	return cmd
}
