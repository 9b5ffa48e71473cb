package oc

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFolderCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage catalog folders",
	}

	var all bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			folders, err := app.Catalog.ListFolders(cmd.Context(), all)
			if err != nil {
				return err
			}
			for _, f := range folders {
				fmt.Fprintln(cmd.OutOrStdout(), f.RelPath)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&all, "all", false, "list the full recursive tree instead of only root-level folders")

	var description string
	createCmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
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
			folder, err := app.Catalog.CreateFolder(cmd.Context(), args[0], desc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), folder.RelPath)
			return nil
		},
	}
	createCmd.Flags().StringVar(&description, "description", "", "folder description")

	renameCmd := &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			rn, err := app.Catalog.RenameFolder(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", rn.Old, rn.New)
			return nil
		},
	}

	moveCmd := &cobra.Command{
		Use:   "move <path> <dest>",
		Short: "Move a folder under a new parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			rn, err := app.Catalog.MoveFolder(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", rn.Old, rn.New)
			return nil
		},
	}

	var force bool
	removeCmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := flags.open()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Catalog.RemoveFolder(cmd.Context(), args[0], force)
		},
	}
	removeCmd.Flags().BoolVar(&force, "force", false, "remove recursively even if non-empty")

	cmd.AddCommand(listCmd, createCmd, renameCmd, moveCmd, removeCmd)
	return cmd
}
