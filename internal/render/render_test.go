package render

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var sample = Result{
	Columns: []string{"id", "name", "active"},
	Rows: [][]any{
		{int64(1), "alice", true},
		{int64(2), nil, false},
		{int64(3), "bob, jr.", true},
	},
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Format{
		"":      FormatTable,
		"table": FormatTable,
		"JSON":  FormatJSON,
		" csv ": FormatCSV,
	} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestTableWidthsAndNull(t *testing.T) {
	t.Parallel()
	out, err := Render(sample, FormatTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + divider + 3 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "NULL") && !strings.Contains(lines[3], "NULL") {
		t.Errorf("missing NULL placeholder:\n%s", out)
	}
	// All rows padded to equal width.
	for _, line := range lines[1:] {
		if len(line) != len(lines[0]) {
			t.Errorf("ragged table row %q (want width %d)", line, len(lines[0]))
		}
	}
}

func TestTableEmpty(t *testing.T) {
	t.Parallel()
	out, _ := Render(Result{Columns: []string{"a"}}, FormatTable)
	if out != "(no rows)" {
		t.Errorf("expected (no rows), got %q", out)
	}
	out, _ = Render(Result{}, FormatTable)
	if out != "(no columns)" {
		t.Errorf("expected (no columns), got %q", out)
	}
}

func TestJSONShape(t *testing.T) {
	t.Parallel()
	out, err := Render(sample, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(decoded))
	}
	if decoded[0]["name"] != "alice" || decoded[0]["active"] != true {
		t.Errorf("unexpected first object %v", decoded[0])
	}
	if decoded[1]["name"] != nil {
		t.Errorf("NULL must encode as JSON null, got %v", decoded[1]["name"])
	}
}

func TestJSONSingleValue(t *testing.T) {
	t.Parallel()
	out, err := Render(Result{Columns: []string{""}, Rows: [][]any{{int64(1)}}}, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0][""] != float64(1) {
		t.Errorf("unexpected shape %v", decoded)
	}
}

func TestJSONTemporal(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	out, err := Render(Result{Columns: []string{"at"}, Rows: [][]any{{ts}}}, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "2024-05-01T10:30:00Z") {
		t.Errorf("expected RFC 3339 timestamp, got %s", out)
	}
}

func TestCSVQuoting(t *testing.T) {
	t.Parallel()
	out, err := Render(sample, FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(records))
	}
	if records[3][1] != "bob, jr." {
		t.Errorf("comma value must round-trip, got %q", records[3][1])
	}
	if records[2][1] != "" {
		t.Errorf("NULL must encode as empty field, got %q", records[2][1])
	}
}

func TestCSVEmbeddedNewlineAndQuote(t *testing.T) {
	t.Parallel()
	res := Result{Columns: []string{"v"}, Rows: [][]any{{"line1\nline2 \"quoted\""}}}
	out, err := Render(res, FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if records[1][0] != "line1\nline2 \"quoted\"" {
		t.Errorf("value must round-trip, got %q", records[1][0])
	}
}

func TestRowCountPreservedAcrossFormats(t *testing.T) {
	t.Parallel()
	for _, format := range []Format{FormatTable, FormatJSON, FormatCSV} {
		out, err := Render(sample, format)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		var rows int
		switch format {
		case FormatTable:
			rows = len(strings.Split(out, "\n")) - 2 // header + divider
		case FormatJSON:
			var decoded []map[string]any
			if err := json.Unmarshal([]byte(out), &decoded); err != nil {
				t.Fatalf("bad JSON: %v", err)
			}
			rows = len(decoded)
		case FormatCSV:
			records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
			if err != nil {
				t.Fatalf("bad CSV: %v", err)
			}
			rows = len(records) - 1 // header
		}
		if rows != len(sample.Rows) {
			t.Errorf("%s: expected %d rows, got %d", format, len(sample.Rows), rows)
		}
	}
}

func TestBinaryPlaceholder(t *testing.T) {
	t.Parallel()
	res := Result{Columns: []string{"blob"}, Rows: [][]any{{[]byte{0x01, 0x02}}}}
	for _, format := range []Format{FormatTable, FormatJSON, FormatCSV} {
		out, err := Render(res, format)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", format, err)
		}
		if !strings.Contains(out, "<binary>") {
			t.Errorf("%s: expected <binary> placeholder, got %s", format, out)
		}
	}
}
