// Package oc is the opencontext CLI: a cobra command tree over pkg/ocapp,
// shaped after the teacher's cmd/root.NewRootCmd (a flags struct, a
// PersistentPreRunE that wires up slog, one constructor per verb group).
package oc

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/guobin211/opencontext/pkg/ocapp"
	"github.com/guobin211/opencontext/pkg/ocfg"
)

type rootFlags struct {
	debugMode    bool
	baseRoot     string
	contextsRoot string
	dbPath       string
}

// NewRootCmd builds the "oc" command tree.
func NewRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "oc",
		Short: "oc - OpenContext document catalog and semantic search",
		Long:  "oc manages a folder/document catalog mirrored to disk and its semantic search index",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if flags.debugMode {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVar(&flags.debugMode, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.baseRoot, "base-root", "", "override the OpenContext base directory")
	cmd.PersistentFlags().StringVar(&flags.contextsRoot, "contexts-root", "", "override the mirrored document tree root")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db-path", "", "override the catalog database path")

	cmd.AddCommand(newFolderCmd(&flags))
	cmd.AddCommand(newDocCmd(&flags))
	cmd.AddCommand(newIndexCmd(&flags))
	cmd.AddCommand(newSearchCmd(&flags))

	return cmd
}

func (f *rootFlags) overrides() ocfg.Overrides {
	return ocfg.Overrides{BaseRoot: f.baseRoot, ContextsRoot: f.contextsRoot, DBPath: f.dbPath}
}

func (f *rootFlags) open() (*ocapp.App, error) {
	return ocapp.Open(f.overrides(), slog.Default())
}

// Execute runs the CLI and exits the process on a reported error, matching
// the teacher's top-level main.go convention.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
