package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete VENDOR OBJECT ID",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			deleted, err := d.Delete(cmd.Context(), args[1], args[2])
			if err != nil {
				return err
			}

			if deleted {
				fmt.Printf("Deleted %s/%s\n", args[1], args[2])
			} else {
				fmt.Printf("Vendor reported %s/%s as not deleted\n", args[1], args[2])
			}

			return nil
		},
	}
}
