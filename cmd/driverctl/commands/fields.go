package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields VENDOR OBJECT",
		Short: "Show the field schema of an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			schema, err := d.GetFields(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			if done, err := renderValue(schema); done {
				return err
			}

			names := make([]string, 0, len(schema))
			for name := range schema {
				names = append(names, name)
			}

			sort.Strings(names)

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Field", "Type", "Label", "Required")

			for _, name := range names {
				field := schema[name]

				required := ""
				if field.Required {
					required = "yes"
				}

				_ = table.Append(name, field.Type, field.Label, required)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
