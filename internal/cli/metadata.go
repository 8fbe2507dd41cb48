package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
)

// metadataCommand creates the metadata management command.
func (c *CLI) metadataCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Inspect and manage persisted binding-container metadata",
		Long: `Containers and extendable graphs resolved from source are persisted as
metadata records, so other modules can use them without their sources.
Reports of earlier runs are cached in the same backend.`,
	}

	cmd.AddCommand(c.metadataShowCommand())
	cmd.AddCommand(c.metadataDeleteCommand())
	cmd.AddCommand(c.metadataClearCommand())
	cmd.AddCommand(c.metadataPathCommand())

	return cmd
}

// metadataShowCommand creates the "metadata show" subcommand.
func (c *CLI) metadataShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print the metadata record of a container or graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			rec, ok, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return bgerrors.New(bgerrors.ErrCodeMetadataMissing, "no metadata for %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
}

// metadataDeleteCommand creates the "metadata delete" subcommand.
func (c *CLI) metadataDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete metadata records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "Deleted %s", name)
			}
			return nil
		},
	}
}

// metadataClearCommand creates the "metadata clear" subcommand.
func (c *CLI) metadataClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every metadata record and cached report",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Cleared %s metadata", c.cfg.Metadata.Backend)
			if c.cfg.Metadata.Backend == "file" {
				dir, _ := c.metadataPath()
				printDetail(cmd.OutOrStdout(), "Directory: %s", dir)
			}
			return nil
		},
	}
}

// metadataPathCommand creates the "metadata path" subcommand.
func (c *CLI) metadataPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the metadata directory of the file backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.metadataPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// metadataPath is the configured directory, or the XDG default.
func (c *CLI) metadataPath() (string, error) {
	if c.cfg.Metadata.Dir != "" {
		return c.cfg.Metadata.Dir, nil
	}
	return metadataDir()
}
