package oc

import (
	"fmt"
	"io"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

func newDocCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage catalog documents",
	}

	var recursive bool
	var glob string
	listCmd := &cobra.Command{
		Use:   "list <folder>",
		Short: "List documents under a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) > 0 {
				folder = args[0]
			}
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.Catalog.ListDocs(cmd.Context(), folder, recursive)
			if err != nil {
				return err
			}
			for _, d := range docs {
				if glob != "" {
					matched, err := doublestar.Match(glob, d.RelPath)
					if err != nil {
						return fmt.Errorf("invalid --glob pattern %q: %w", glob, err)
					}
					if !matched {
						continue
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), d.RelPath)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&recursive, "recursive", false, "include the full subtree")
	listCmd.Flags().StringVar(&glob, "glob", "", `only list rel_paths matching this doublestar pattern, e.g. "**/*.md"`)

	var description string
	createCmd := &cobra.Command{
		Use:   "create <folder> <name>",
		Short: "Create an empty document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			doc, err := app.Catalog.CreateDoc(cmd.Context(), args[0], args[1], desc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.RelPath)
			return nil
		},
	}
	createCmd.Flags().StringVar(&description, "description", "", "document description")

	renameCmd := &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			rn, err := app.Catalog.RenameDoc(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", rn.Old, rn.New)
			return nil
		},
	}

	moveCmd := &cobra.Command{
		Use:   "move <path> <dest-folder>",
		Short: "Move a document into a different folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			rn, err := app.Catalog.MoveDoc(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", rn.Old, rn.New)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Catalog.RemoveDoc(cmd.Context(), args[0])
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Print a document's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			content, err := app.Catalog.GetDocContent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}

	var fromFile string
	writeCmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Overwrite a document's content (reads stdin unless --file is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if fromFile != "" && fromFile != "-" {
				data, err = os.ReadFile(fromFile)
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Catalog.SaveDocContent(cmd.Context(), args[0], string(data), nil)
		},
	}
	writeCmd.Flags().StringVar(&fromFile, "file", "-", "path to read content from, or - for stdin")

	cmd.AddCommand(listCmd, createCmd, renameCmd, moveCmd, removeCmd, showCmd, writeCmd)
	return cmd
}
