package commands

import (
	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/spf13/cobra"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update VENDOR OBJECT ID JSON",
		Short: "Update a record from a JSON payload",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			data, err := parseRecord(args[3])
			if err != nil {
				return err
			}

			record, err := d.Update(cmd.Context(), args[1], args[2], data)
			if err != nil {
				return err
			}

			return renderRecords([]driver.Record{record})
		},
	}
}
