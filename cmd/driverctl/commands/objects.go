package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewObjectsCommand creates the objects command.
func NewObjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "objects VENDOR",
		Short: "List the objects a vendor exposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			objects, err := d.ListObjects(cmd.Context())
			if err != nil {
				return err
			}

			if done, err := renderValue(objects); done {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Object")

			for _, object := range objects {
				_ = table.Append(object)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
