package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bindgraph/pkg/decl"
)

// validateCommand creates the validate command. It only checks the
// declaration files against the schema and the module rules; graphs are
// not resolved.
func (c *CLI) validateCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check declaration files without resolving",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.loadModule(name, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSuccess(out, "%s is valid", m.Name)
			printKeyValue(out, "containers", fmt.Sprint(len(m.Containers)))
			printKeyValue(out, "graphs", fmt.Sprint(len(m.Graphs)))
			printKeyValue(out, "classes", fmt.Sprint(len(m.Classes)))
			printKeyValue(out, "extensions", fmt.Sprint(len(m.Extensions)))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "module name when merging several files")
	return cmd
}

// schemaCommand prints the JSON schema of declaration files.
func (c *CLI) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of declaration files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(decl.SchemaSource())
			return err
		},
	}
}
