package driver

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateLimit rejects page sizes above the vendor maximum before any
// network call.
func ValidateLimit(limit, maxPageSize int) error {
	if limit > maxPageSize {
		return NewValidationError(
			fmt.Sprintf("limit cannot exceed %d (got: %d)", maxPageSize, limit),
			map[string]any{
				"parameter": "limit",
				"provided":  limit,
				"maximum":   maxPageSize,
			})
	}

	if limit < 0 {
		return NewValidationError(
			fmt.Sprintf("limit must be at least 1 (got: %d)", limit),
			map[string]any{
				"parameter": "limit",
				"provided":  limit,
				"minimum":   1,
			})
	}

	return nil
}

// RequireObject checks the object against the vendor's known set and
// returns an object-not-found error naming the alternatives, with the
// closest match as a suggestion.
func RequireObject(object string, available []string) error {
	for _, name := range available {
		if name == object {
			return nil
		}
	}

	details := map[string]any{
		"requested": object,
		"available": available,
	}

	if suggestion := closestName(object, available); suggestion != "" {
		details["suggestion"] = suggestion
	}

	return NewObjectNotFoundError(
		fmt.Sprintf("object '%s' not found. Available: %s", object, strings.Join(available, ", ")),
		details)
}

// ValidateRequired rejects create payloads missing schema-required fields
// before any network call.
func ValidateRequired(object string, schema Schema, data Record) error {
	var missing []string

	for name, field := range schema {
		if !field.Required {
			continue
		}

		if value, ok := data[name]; !ok || value == nil || value == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)

	return NewValidationError(
		fmt.Sprintf("missing required fields for '%s': %s", object, strings.Join(missing, ", ")),
		map[string]any{
			"object":         object,
			"missing_fields": missing,
		})
}

// MissingEnvError reports unset environment variables as an authentication
// failure before any network call.
func MissingEnvError(vendor string, required []string) error {
	return NewAuthenticationError(
		fmt.Sprintf("missing %s credentials. Set %s", vendor, strings.Join(required, ", ")),
		map[string]any{
			"required_env_vars": required,
		})
}

// closestName finds the available name sharing the longest prefix with the
// request; cheap but catches most typos like "custmers".
func closestName(requested string, available []string) string {
	best := ""
	bestLen := 0

	for _, name := range available {
		l := commonPrefixLen(strings.ToLower(requested), strings.ToLower(name))
		if l > bestLen {
			best = name
			bestLen = l
		}
	}

	if bestLen < 3 {
		return ""
	}

	return best
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}

	return n
}
