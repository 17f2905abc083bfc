package msmcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the gatekeeper tools on the given MCP server:
// execute_sql, get_policy_info, check_db_connection, list_schemas,
// list_tables, schema_discovery, and get_database_info.
func RegisterMCPTools(mcpServer *server.MCPServer, m *MssqlMcp) {
	// ExecuteSQL tool
	executeTool := mcp.NewTool("execute_sql",
		mcp.WithDescription("Execute a single SQL statement against the SQL Server database, subject to the configured access policy. Returns the result set rendered in the requested format."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to execute (exactly one statement)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'table' (default), 'json', or 'csv'"),
		),
		mcp.WithString("admin_confirm",
			mcp.Description("Admin confirmation token, required for write statements when writes are enabled"),
		),
	)

	mcpServer.AddTool(executeTool, m.loggedToolHandler("execute_sql", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		output, err := m.ExecuteSQL(ctx, ExecuteInput{
			SQL:          sql,
			Format:       req.GetString("format", ""),
			AdminConfirm: req.GetString("admin_confirm", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text := output.Rendered
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += output.Summary()
		return mcp.NewToolResultText(text), nil
	}))

	// PolicyInfo tool
	policyTool := mcp.NewTool("get_policy_info",
		mcp.WithDescription("Describe the active access policy: read-only state, write gating, row and length caps, banned rule names, and rate limits. Makes no database calls."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(policyTool, m.loggedToolHandler("get_policy_info", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return marshalResult(m.PolicyInfo(), "failed to marshal policy info")
	}))

	// CheckConnection tool
	checkTool := mcp.NewTool("check_db_connection",
		mcp.WithDescription("Check database connectivity and report round-trip latency."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(checkTool, m.loggedToolHandler("check_db_connection", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return marshalResult(m.CheckConnection(ctx), "failed to marshal connection status")
	}))

	// ListSchemas tool
	schemasTool := mcp.NewTool("list_schemas",
		mcp.WithDescription("List all schemas in the current database with their owners."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(schemasTool, m.loggedToolHandler("list_schemas", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output, err := m.ListSchemas(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(output, "failed to marshal schema list")
	}))

	// ListTables tool
	tablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List tables and views, optionally filtered to a single schema."),
		mcp.WithString("schema",
			mcp.Description("Only list objects in this schema"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of objects to return (default 200, capped at 1000)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(tablesTool, m.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output, err := m.ListTables(ctx, ListTablesInput{
			Schema: req.GetString("schema", ""),
			Limit:  req.GetInt("limit", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(output, "failed to marshal table list")
	}))

	// SchemaDiscovery tool
	discoverTool := mcp.NewTool("schema_discovery",
		mcp.WithDescription("Describe the columns of a table or view: name, type, max length, nullability, and identity."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table or view name to describe"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema name (defaults to 'dbo')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(discoverTool, m.loggedToolHandler("schema_discovery", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		output, err := m.SchemaDiscovery(ctx, DiscoverInput{
			Table:  table,
			Schema: req.GetString("schema", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(output, "failed to marshal schema discovery result")
	}))

	// DatabaseInfo tool
	infoTool := mcp.NewTool("get_database_info",
		mcp.WithDescription("Return server identity: database name, version, edition, and product level."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(infoTool, m.loggedToolHandler("get_database_info", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output, err := m.GetDatabaseInfo(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalResult(output, "failed to marshal database info")
	}))
}

func marshalResult(v any, failMsg string) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(failMsg), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (m *MssqlMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		m.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
