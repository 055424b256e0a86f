package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/fivetwenty-io/driverkit/pkg/driverkit"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// resolveDriver builds a driver for the named vendor. Flags and config-file
// values win over environment variables.
func resolveDriver(cmd *cobra.Command, vendorName string) (driver.Driver, error) {
	vendor, err := driverkit.ParseVendor(vendorName)
	if err != nil {
		return nil, err
	}

	cfg := &driver.Config{
		BaseURL:      viper.GetString("base-url"),
		APIKey:       viper.GetString("api-key"),
		AccessToken:  viper.GetString("access-token"),
		ClientID:     viper.GetString("client-id"),
		ClientSecret: viper.GetString("client-secret"),
		Database:     viper.GetString("database"),
		ProjectID:    viper.GetString("project-id"),
		SecretKey:    viper.GetString("secret-key"),
	}

	if viper.GetBool("verbose") {
		cfg.Debug = true
		cfg.Logger = driverkit.NewZerologLogger(
			zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(zerolog.DebugLevel).
				With().
				Timestamp().
				Logger())
	}

	if cfg.APIKey == "" && cfg.AccessToken == "" && cfg.ClientID == "" {
		return driverkit.FromEnv(cmd.Context(), vendor, cfg)
	}

	return driverkit.New(cmd.Context(), vendor, cfg)
}

// renderRecords prints records in the configured output format.
func renderRecords(records []driver.Record) error {
	output := viper.GetString("output")

	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(records)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(records)
	default:
		return renderRecordTable(records)
	}
}

// renderRecordTable prints records as a table with the union of their
// columns, id first.
func renderRecordTable(records []driver.Record) error {
	if len(records) == 0 {
		fmt.Println("No records found")

		return nil
	}

	columns := recordColumns(records)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header(columns...)

	for _, record := range records {
		row := make([]any, 0, len(columns))
		for _, column := range columns {
			row = append(row, formatCell(record[column.(string)]))
		}

		_ = table.Append(row...)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func recordColumns(records []driver.Record) []any {
	seen := make(map[string]bool)

	var names []string

	for _, record := range records {
		for name := range record {
			if !seen[name] {
				seen[name] = true

				names = append(names, name)
			}
		}
	}

	sort.Slice(names, func(i, j int) bool {
		if names[i] == "id" {
			return true
		}

		if names[j] == "id" {
			return false
		}

		return names[i] < names[j]
	})

	columns := make([]any, 0, len(names))
	for _, name := range names {
		columns = append(columns, name)
	}

	return columns
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

// renderValue prints an arbitrary value as json or yaml; the caller handles
// table output itself.
func renderValue(value any) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return true, encoder.Encode(value)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		return true, encoder.Encode(value)
	default:
		return false, nil
	}
}

// parseFilters splits repeated key=value flags.
func parseFilters(raw []string) (map[string]string, error) {
	filters := make(map[string]string, len(raw))

	for _, pair := range raw {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}

		filters[key] = value
	}

	return filters, nil
}

// parseRecord decodes the JSON payload of create/update commands.
func parseRecord(raw string) (driver.Record, error) {
	var record driver.Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	return record, nil
}
