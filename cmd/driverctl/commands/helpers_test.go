package commands

import (
	"testing"

	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	t.Parallel()

	t.Run("valid pairs", func(t *testing.T) {
		t.Parallel()

		filters, err := parseFilters([]string{"status=active", "email=a@example.com"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"status": "active",
			"email":  "a@example.com",
		}, filters)
	})

	t.Run("value containing equals", func(t *testing.T) {
		t.Parallel()

		filters, err := parseFilters([]string{`domain=[["name","=","acme"]]`})
		require.NoError(t, err)
		assert.Equal(t, `[["name","=","acme"]]`, filters["domain"])
	})

	t.Run("missing separator", func(t *testing.T) {
		t.Parallel()

		_, err := parseFilters([]string{"status"})
		require.Error(t, err)
	})
}

func TestParseRecord(t *testing.T) {
	t.Parallel()

	record, err := parseRecord(`{"name": "Acme", "active": true}`)
	require.NoError(t, err)
	assert.Equal(t, "Acme", record["name"])
	assert.Equal(t, true, record["active"])

	_, err = parseRecord("not json")
	require.Error(t, err)
}

func TestRecordColumns_IDFirst(t *testing.T) {
	t.Parallel()

	columns := recordColumns([]driver.Record{
		{"name": "Acme", "id": "1"},
		{"id": "2", "email": "a@example.com"},
	})

	require.Len(t, columns, 3)
	assert.Equal(t, "id", columns[0])
	assert.Equal(t, "email", columns[1])
	assert.Equal(t, "name", columns[2])
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "plain", formatCell("plain"))
	assert.Equal(t, "42", formatCell(42))
	assert.Equal(t, `{"tier":"vip"}`, formatCell(map[string]any{"tier": "vip"}))
}
