package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewCapabilitiesCommand creates the capabilities command.
func NewCapabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities VENDOR",
		Short: "Show what operations a vendor driver supports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			caps := d.Capabilities()

			if done, err := renderValue(caps); done {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Capability", "Value")
			_ = table.Append("Read", strconv.FormatBool(caps.Read))
			_ = table.Append("Write", strconv.FormatBool(caps.Write))
			_ = table.Append("Update", strconv.FormatBool(caps.Update))
			_ = table.Append("Delete", strconv.FormatBool(caps.Delete))
			_ = table.Append("Batch Operations", strconv.FormatBool(caps.BatchOperations))
			_ = table.Append("Streaming", strconv.FormatBool(caps.Streaming))
			_ = table.Append("Pagination", string(caps.Pagination))
			_ = table.Append("Max Page Size", strconv.Itoa(caps.MaxPageSize))
			_ = table.Append("Transactions", strconv.FormatBool(caps.SupportsTransactions))
			_ = table.Append("Relationships", strconv.FormatBool(caps.SupportsRelationships))

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
