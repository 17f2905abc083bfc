package msmcp

import "fmt"

// ExecuteInput is the input for the ExecuteSQL tool.
type ExecuteInput struct {
	SQL          string `json:"sql"`
	Format       string `json:"format,omitempty"` // "table" (default), "json", "csv"
	AdminConfirm string `json:"admin_confirm,omitempty"`
	Caller       string `json:"caller,omitempty"` // rate limit key; empty means the global bucket
}

// ExecuteOutput is the output of the ExecuteSQL tool. Rendered holds the
// result set in the requested format; RowCount counts the rows actually
// returned after the row cap was applied.
type ExecuteOutput struct {
	Rendered    string  `json:"rendered"`
	RowCount    int     `json:"row_count"`
	ColumnCount int     `json:"column_count"`
	Truncated   bool    `json:"truncated"`
	DurationMS  float64 `json:"duration_ms"`
}

// Summary returns the trailing result-shape line appended to rendered
// output, e.g. "[2 row(s), 3 column(s)]".
func (o *ExecuteOutput) Summary() string {
	s := fmt.Sprintf("[%d row(s), %d column(s)]", o.RowCount, o.ColumnCount)
	if o.Truncated {
		s += " (truncated at row cap)"
	}
	return s
}

// PolicyInfoOutput is the output of the PolicyInfo tool. It describes the
// active policy without touching the database.
type PolicyInfoOutput struct {
	ReadOnly        bool     `json:"read_only"`
	WritesEnabled   bool     `json:"writes_enabled"`
	AdminConfirmSet bool     `json:"admin_confirm_set"`
	MaxQueryLength  int      `json:"max_query_length"`
	MaxRowsPerQuery int      `json:"max_rows_per_query"`
	BannedRules     []string `json:"banned_rules"`
	RateLimit       struct {
		Enabled   bool `json:"enabled"`
		PerMinute int  `json:"per_minute"`
	} `json:"rate_limit"`
}

// ConnectionStatus is the output of the CheckConnection tool.
type ConnectionStatus struct {
	Connected bool    `json:"connected"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// SchemaEntry represents a single schema in the ListSchemas output.
type SchemaEntry struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// ListSchemasOutput is the output of the ListSchemas tool.
type ListSchemasOutput struct {
	Schemas []SchemaEntry `json:"schemas"`
}

// ListTablesInput is the input for the ListTables tool.
type ListTablesInput struct {
	Schema string `json:"schema,omitempty"` // filter; empty means all schemas
	Limit  int    `json:"limit,omitempty"`  // default 200, capped at 1000
}

// TableEntry represents a single table or view in the ListTables output.
type TableEntry struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"` // "table", "view"
}

// ListTablesOutput is the output of the ListTables tool.
type ListTablesOutput struct {
	Tables []TableEntry `json:"tables"`
}

// DiscoverInput is the input for the SchemaDiscovery tool.
type DiscoverInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"` // default "dbo"
}

// ColumnInfo describes a single column.
type ColumnInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	MaxLength int    `json:"max_length,omitempty"`
	Nullable  bool   `json:"nullable"`
	Identity  bool   `json:"identity"`
}

// DiscoverOutput is the output of the SchemaDiscovery tool.
type DiscoverOutput struct {
	Schema  string       `json:"schema"`
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// DatabaseInfo is the output of the DatabaseInfo tool.
type DatabaseInfo struct {
	Database string `json:"database"`
	Version  string `json:"version"`
	Edition  string `json:"edition"`
	Level    string `json:"level"` // product level, e.g. "RTM", "CU12"
}
