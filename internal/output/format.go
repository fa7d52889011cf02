package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// Format selects how tabular results are written.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatMarkdown}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatTable, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (use: table, json, csv, markdown)", s)
}

// JSON writes v as indented JSON.
func (u *UI) JSON(v any) error {
	enc := json.NewEncoder(u.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Rows writes headers and rows in one of the tabular formats.
func (u *UI) Rows(f Format, headers []string, rows [][]string) error {
	switch f {
	case FormatCSV:
		w := csv.NewWriter(u.Out)
		if err := w.Write(headers); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return w.Error()
	case FormatMarkdown:
		table := tablewriter.NewTable(u.Out, tablewriter.WithRenderer(renderer.NewMarkdown()))
		table.Header(headers)
		for _, r := range rows {
			if err := table.Append(r); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		table := u.Table(headers)
		for _, r := range rows {
			if err := table.Append(r); err != nil {
				return err
			}
		}
		return table.Render()
	}
}
