package msmcp

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Catalog queries run outside the policy pipeline but still under the
// schema timeout and a fixed row cap, so a pathological catalog cannot
// flood the agent either.
const schemaRowCap = 10000

const listSchemasSQL = `
SELECT s.name, p.name
FROM sys.schemas s
JOIN sys.database_principals p ON s.principal_id = p.principal_id
ORDER BY s.name`

const databaseInfoSQL = `
SELECT DB_NAME(),
       @@VERSION,
       CONVERT(nvarchar(128), SERVERPROPERTY('Edition')),
       CONVERT(nvarchar(128), SERVERPROPERTY('ProductLevel'))`

// ListSchemas returns all schemas in the current database with their owners.
func (m *MssqlMcp) ListSchemas(ctx context.Context) (*ListSchemasOutput, error) {
	result, err := m.runCatalog(ctx, "list_schemas", listSchemasSQL)
	if err != nil {
		return nil, err
	}

	schemas := make([]SchemaEntry, 0, len(result.Rows))
	for _, row := range result.Rows {
		schemas = append(schemas, SchemaEntry{
			Name:  asString(row[0]),
			Owner: asString(row[1]),
		})
	}
	return &ListSchemasOutput{Schemas: schemas}, nil
}

// ListTables returns tables and views, optionally filtered to one schema.
func (m *MssqlMcp) ListTables(ctx context.Context, input ListTablesInput) (*ListTablesOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `
SELECT TOP (%d) s.name, o.name, CASE o.type WHEN 'U' THEN 'table' ELSE 'view' END
FROM sys.objects o
JOIN sys.schemas s ON o.schema_id = s.schema_id
WHERE o.type IN ('U', 'V')`, limit)
	if input.Schema != "" {
		fmt.Fprintf(&sb, "\n  AND s.name = N'%s'", escapeLiteral(input.Schema))
	}
	sb.WriteString("\nORDER BY s.name, o.name")

	result, err := m.runCatalog(ctx, "list_tables", sb.String())
	if err != nil {
		return nil, err
	}

	tables := make([]TableEntry, 0, len(result.Rows))
	for _, row := range result.Rows {
		tables = append(tables, TableEntry{
			Schema: asString(row[0]),
			Name:   asString(row[1]),
			Type:   asString(row[2]),
		})
	}
	return &ListTablesOutput{Tables: tables}, nil
}

// SchemaDiscovery returns the column layout of a single table or view.
func (m *MssqlMcp) SchemaDiscovery(ctx context.Context, input DiscoverInput) (*DiscoverOutput, error) {
	if input.Table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	schema := input.Schema
	if schema == "" {
		schema = "dbo"
	}

	sql := fmt.Sprintf(`
SELECT c.name, t.name, c.max_length, c.is_nullable, c.is_identity
FROM sys.columns c
JOIN sys.types t ON c.user_type_id = t.user_type_id
WHERE c.object_id = OBJECT_ID(N'%s.%s')
ORDER BY c.column_id`, quoteIdent(schema), quoteIdent(input.Table))

	result, err := m.runCatalog(ctx, "schema_discovery", sql)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("table %q not found in schema %q", input.Table, schema)
	}

	columns := make([]ColumnInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		columns = append(columns, ColumnInfo{
			Name:      asString(row[0]),
			Type:      asString(row[1]),
			MaxLength: asInt(row[2]),
			Nullable:  asBool(row[3]),
			Identity:  asBool(row[4]),
		})
	}
	return &DiscoverOutput{Schema: schema, Name: input.Table, Columns: columns}, nil
}

// GetDatabaseInfo returns server identity: database name, version string,
// edition, and product level.
func (m *MssqlMcp) GetDatabaseInfo(ctx context.Context) (*DatabaseInfo, error) {
	result, err := m.runCatalog(ctx, "get_database_info", databaseInfoSQL)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("server returned no info row")
	}
	row := result.Rows[0]
	return &DatabaseInfo{
		Database: asString(row[0]),
		Version:  firstLine(asString(row[1])),
		Edition:  asString(row[2]),
		Level:    asString(row[3]),
	}, nil
}

// runCatalog executes a catalog query under the schema timeout.
func (m *MssqlMcp) runCatalog(ctx context.Context, tool, sql string) (*ExecutionResult, error) {
	startTime := time.Now()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		m.metrics.QueryExecuted(tool, "error")
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(m.config.Query.SchemaTimeoutSeconds)*time.Second)
	defer cancel()

	result, healthy, execErr := m.runStatement(queryCtx, conn, sql, schemaRowCap)
	elapsed := time.Since(startTime)
	m.pool.Release(conn, healthy)

	m.metrics.QueryExecuted(tool, statusLabel(execErr))
	m.metrics.ObserveDuration(tool, elapsed)
	if execErr != nil {
		m.metrics.ErrorOccurred(errorLabel(execErr))
		return nil, execErr
	}

	m.logger.Info().
		Str("tool", tool).
		Dur("duration", elapsed).
		Int("row_count", result.RowCount).
		Msg("catalog query executed")
	return result, nil
}

// quoteIdent wraps an identifier in brackets, escaping closing brackets.
func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// escapeLiteral escapes single quotes for embedding in an N'...' literal.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// firstLine trims @@VERSION down to its first line; the full value spans
// several lines of build metadata.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asInt(v any) int {
	switch val := v.(type) {
	case int:
		return val
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	default:
		return false
	}
}
