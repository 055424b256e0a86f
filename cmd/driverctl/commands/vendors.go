package commands

import (
	"fmt"
	"os"

	"github.com/fivetwenty-io/driverkit/pkg/driverkit"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewVendorsCommand creates the vendors command.
func NewVendorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List supported vendors",
		RunE: func(cmd *cobra.Command, args []string) error {
			vendors := driverkit.Vendors()

			names := make([]string, 0, len(vendors))
			for _, vendor := range vendors {
				names = append(names, string(vendor))
			}

			if done, err := renderValue(names); done {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Vendor")

			for _, name := range names {
				_ = table.Append(name)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
