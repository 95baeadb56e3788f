package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Columns read by ReadCSV. Only name is required; others may be absent from the header.
const (
	ColumnName     = "name"
	ColumnCosts    = "costs"
	ColumnType     = "type"
	ColumnSubtypes = "subtypes"
	ColumnRules    = "rules"
	ColumnPower    = "power"
	ColumnHealth   = "health"
)

// rulesSeparator splits rules abilities inside one CSV cell.
const rulesSeparator = "|"

// ReadCSV reads card rows from a CSV export with a header row. Rows that do not yield a
// definition are reported in the returned error slice and skipped.
func ReadCSV(r io.Reader) ([]CardDefinition, []error, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("csv export is empty")
		}
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[ColumnName]; !ok {
		return nil, nil, fmt.Errorf("csv header has no %q column", ColumnName)
	}

	var defs []CardDefinition
	var skipped []error
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return defs, skipped, fmt.Errorf("failed to read csv row %d: %w", row, err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		def, err := ParseText(FormatText(
			field(ColumnName),
			field(ColumnCosts),
			field(ColumnType),
			field(ColumnSubtypes),
			strings.Split(field(ColumnRules), rulesSeparator),
			field(ColumnPower),
			field(ColumnHealth),
		))
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: %w", row, err))
			continue
		}
		defs = append(defs, def)
	}
	return defs, skipped, nil
}

// FormatText renders the pieces of a card in the text format ParseText reads.
// Stats are written only when both power and health are set.
func FormatText(name, costs, typ, subtypes string, rules []string, power, health string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(name))
	if costs = strings.TrimSpace(costs); costs != "" {
		b.WriteString(" ")
		b.WriteString(costs)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(typ))
	if subtypes = strings.TrimSpace(subtypes); subtypes != "" {
		b.WriteString(" - ")
		b.WriteString(subtypes)
	}
	for _, line := range rules {
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	if power != "" && health != "" {
		fmt.Fprintf(&b, "\n%s / %s", power, health)
	}
	return b.String()
}
