package oc

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guobin211/opencontext/pkg/search/rank"
)

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var limit int
	var mode string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic (optionally hybrid) search over the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			results, err := app.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if mode == "hybrid" {
				all, err := app.Store.GetAllChunks(cmd.Context())
				if err != nil {
					return err
				}
				fuser, err := rank.Build(all)
				if err != nil {
					return err
				}
				defer fuser.Close()
				results, err = fuser.Fuse(cmd.Context(), args[0], results)
				if err != nil {
					return err
				}
				if len(results) > limit {
					results = results[:limit]
				}
			}

			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %s  %s\n", r.Score, r.Chunk.FilePath, r.Chunk.DisplayName())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().StringVar(&mode, "mode", "semantic", `search mode: "semantic" or "hybrid"`)

	return cmd
}
