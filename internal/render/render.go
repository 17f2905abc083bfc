// Package render converts raw result sets into their external encodings.
// Rendering is a pure function of the result and the requested format; it
// never touches the database.
package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format is a supported output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a caller-supplied format string. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected table, json, or csv)", s)
	}
}

// Result is the renderer's own view of a result set.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Render encodes res in the requested format.
func Render(res Result, format Format) (string, error) {
	switch format {
	case FormatTable:
		return renderTable(res), nil
	case FormatJSON:
		return renderJSON(res)
	case FormatCSV:
		return renderCSV(res)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// renderTable produces a fixed-width ASCII table, columns sized to the
// widest value (header included). NULL renders as the literal "NULL".
func renderTable(res Result) string {
	if len(res.Columns) == 0 {
		return "(no columns)"
	}
	if len(res.Rows) == 0 {
		return "(no rows)"
	}

	widths := make([]int, len(res.Columns))
	for i, h := range res.Columns {
		widths[i] = len(h)
	}

	strRows := make([][]string, len(res.Rows))
	for r, row := range res.Rows {
		cells := make([]string, len(res.Columns))
		for i := range res.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			s := cellString(v, "NULL")
			cells[i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
		strRows[r] = cells
	}

	var sb strings.Builder
	for i, h := range res.Columns {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(pad(h, widths[i]))
	}
	sb.WriteByte('\n')
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("-+-")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	for _, cells := range strRows {
		sb.WriteByte('\n')
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteString(pad(cell, widths[i]))
		}
	}
	return sb.String()
}

// renderJSON produces an array of objects keyed by column name. Values keep
// native JSON types where representable; temporal values are RFC 3339.
func renderJSON(res Result) (string, error) {
	objects := make([]map[string]any, len(res.Rows))
	for r, row := range res.Rows {
		obj := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			obj[col] = jsonValue(v)
		}
		objects[r] = obj
	}
	b, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result as JSON: %w", err)
	}
	return string(b), nil
}

// renderCSV produces RFC-4180 output via encoding/csv. NULL renders as an
// empty field.
func renderCSV(res Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(res.Columns); err != nil {
		return "", fmt.Errorf("failed to encode result as CSV: %w", err)
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i := range res.Columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			record[i] = cellString(v, "")
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to encode result as CSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to encode result as CSV: %w", err)
	}
	return buf.String(), nil
}

// cellString renders a single value for textual formats.
func cellString(v any, null string) string {
	switch val := v.(type) {
	case nil:
		return null
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []byte:
		return "<binary>"
	case time.Time:
		return val.Format(time.RFC3339)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// jsonValue maps a value to its JSON representation.
func jsonValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return "<binary>"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
