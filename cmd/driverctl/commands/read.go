package commands

import (
	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/spf13/cobra"
)

// NewReadCommand creates the read command.
func NewReadCommand() *cobra.Command {
	var (
		limit   int
		offset  int
		page    int
		cursor  string
		orderBy string
		filters []string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "read VENDOR OBJECT",
		Short: "Read records from a vendor object",
		Long: `Read records from a vendor object.

With --all the command pages through the entire result set using the
vendor's pagination style; otherwise a single page is fetched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDriver(cmd, args[0])
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			query := driver.NewQuery(args[1]).
				WithLimit(limit).
				WithOffset(offset).
				WithPage(page).
				WithCursor(cursor).
				WithOrderBy(orderBy)

			parsed, err := parseFilters(filters)
			if err != nil {
				return err
			}

			for key, value := range parsed {
				query = query.WithFilter(key, value)
			}

			var records []driver.Record

			if all {
				it, err := d.ReadBatched(cmd.Context(), query)
				if err != nil {
					return err
				}

				records, err = it.All(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				records, err = d.Read(cmd.Context(), query)
				if err != nil {
					return err
				}
			}

			return renderRecords(records)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "starting offset (offset-paginated vendors)")
	cmd.Flags().IntVar(&page, "page", 0, "page number (page-paginated vendors)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "continuation cursor (cursor-paginated vendors)")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "sort order")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}
