package driver

import (
	"net/url"
	"strconv"
	"strings"
)

// Query describes one read request against a vendor object. Filters hold
// vendor field names mapped to accepted values; how they are encoded on the
// wire is the driver's concern.
type Query struct {
	Object  string
	Filters map[string][]string
	Fields  []string
	OrderBy string
	Limit   int
	Offset  int
	Page    int
	Cursor  string
}

// NewQuery creates a query for the given object with initialized maps.
func NewQuery(object string) *Query {
	return &Query{
		Object:  object,
		Filters: make(map[string][]string),
	}
}

// WithFilter adds filter values for a field, appending to existing ones.
func (q *Query) WithFilter(field string, values ...string) *Query {
	if q.Filters == nil {
		q.Filters = make(map[string][]string)
	}

	q.Filters[field] = append(q.Filters[field], values...)

	return q
}

// WithFields replaces the set of fields to select.
func (q *Query) WithFields(fields ...string) *Query {
	q.Fields = fields

	return q
}

// WithOrderBy sets the sort expression. Prefix with "-" for descending.
func (q *Query) WithOrderBy(orderBy string) *Query {
	q.OrderBy = orderBy

	return q
}

// WithLimit sets the page size.
func (q *Query) WithLimit(limit int) *Query {
	q.Limit = limit

	return q
}

// WithOffset sets the starting offset for offset-paginated vendors.
func (q *Query) WithOffset(offset int) *Query {
	q.Offset = offset

	return q
}

// WithPage sets the 1-indexed page number for page-paginated vendors.
func (q *Query) WithPage(page int) *Query {
	q.Page = page

	return q
}

// WithCursor sets the continuation token for cursor-paginated vendors.
func (q *Query) WithCursor(cursor string) *Query {
	q.Cursor = cursor

	return q
}

// ToValues converts the query to URL query parameters using the common
// parameter names. Drivers with vendor-specific names build their own
// values instead.
func (q *Query) ToValues() url.Values {
	values := url.Values{}

	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.Cursor != "" {
		values.Set("cursor", q.Cursor)
	}

	if q.OrderBy != "" {
		values.Set("order_by", q.OrderBy)
	}

	if len(q.Fields) > 0 {
		values.Set("fields", strings.Join(q.Fields, ","))
	}

	for field, filterValues := range q.Filters {
		if len(filterValues) > 0 {
			values.Set(field, strings.Join(filterValues, ","))
		}
	}

	return values
}

// Clone returns a deep copy so drivers can adjust pagination state without
// mutating the caller's query.
func (q *Query) Clone() *Query {
	clone := *q

	if q.Filters != nil {
		clone.Filters = make(map[string][]string, len(q.Filters))
		for field, values := range q.Filters {
			clone.Filters[field] = append([]string(nil), values...)
		}
	}

	if q.Fields != nil {
		clone.Fields = append([]string(nil), q.Fields...)
	}

	return &clone
}
