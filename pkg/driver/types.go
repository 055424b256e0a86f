package driver

import "strconv"

// Record is a single row returned by a driver, keyed by vendor field name.
type Record map[string]any

// ID returns the record's identifier field, trying the common vendor
// spellings in order. Numeric identifiers are returned in decimal form.
func (r Record) ID() string {
	for _, key := range []string{"id", "Id", "ID", "guid", "userId"} {
		v, ok := r[key]
		if !ok {
			continue
		}

		switch id := v.(type) {
		case string:
			return id
		case float64:
			return strconv.FormatInt(int64(id), 10)
		case int:
			return strconv.Itoa(id)
		case int64:
			return strconv.FormatInt(id, 10)
		}
	}

	return ""
}

// Field describes a single field in an object schema.
type Field struct {
	Type     string `json:"type"               yaml:"type"`
	Label    string `json:"label"              yaml:"label"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Schema maps field names to their definitions for one object type.
type Schema map[string]Field

// RequiredFields returns the names of all required fields in the schema.
func (s Schema) RequiredFields() []string {
	var required []string

	for name, field := range s {
		if field.Required {
			required = append(required, name)
		}
	}

	return required
}

// PaginationStyle identifies how a vendor API pages through results.
type PaginationStyle string

const (
	// PaginationNone means the API does not paginate.
	PaginationNone PaginationStyle = "none"

	// PaginationOffset is LIMIT/OFFSET style paging.
	PaginationOffset PaginationStyle = "offset"

	// PaginationCursor is opaque continuation-token paging.
	PaginationCursor PaginationStyle = "cursor"

	// PaginationPage is 1-indexed page-number paging.
	PaginationPage PaginationStyle = "page"

	// PaginationHybrid supports both page numbers and cursor tokens.
	PaginationHybrid PaginationStyle = "hybrid"
)

// Capabilities is the static descriptor of what one vendor driver supports.
// It is computed at construction and never changes afterwards.
type Capabilities struct {
	Read                  bool            `json:"read"                     yaml:"read"`
	Write                 bool            `json:"write"                    yaml:"write"`
	Update                bool            `json:"update"                   yaml:"update"`
	Delete                bool            `json:"delete"                   yaml:"delete"`
	BatchOperations       bool            `json:"batch_operations"         yaml:"batch_operations"`
	Streaming             bool            `json:"streaming"                yaml:"streaming"`
	Pagination            PaginationStyle `json:"pagination"               yaml:"pagination"`
	QueryLanguage         string          `json:"query_language,omitempty" yaml:"query_language,omitempty"`
	MaxPageSize           int             `json:"max_page_size"            yaml:"max_page_size"`
	SupportsTransactions  bool            `json:"supports_transactions"    yaml:"supports_transactions"`
	SupportsRelationships bool            `json:"supports_relationships"   yaml:"supports_relationships"`
}
