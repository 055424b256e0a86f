package commands

import (
	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/spf13/cobra"
)

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create VENDOR OBJECT JSON",
		Short: "Create a record from a JSON payload",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			data, err := parseRecord(args[2])
			if err != nil {
				return err
			}

			record, err := d.Create(cmd.Context(), args[1], data)
			if err != nil {
				return err
			}

			return renderRecords([]driver.Record{record})
		},
	}
}
