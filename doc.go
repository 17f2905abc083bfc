// Package msmcp provides safe, controlled SQL Server access for AI agents
// through the Model Context Protocol (MCP).
//
// It exposes seven tools — ExecuteSQL, PolicyInfo, CheckConnection,
// ListSchemas, ListTables, SchemaDiscovery, and GetDatabaseInfo — behind
// a gatekeeper pipeline: lexical policy classification (read, write,
// banned), admin-confirmed write unlocking, rate limiting, a bounded
// connection pool, per-query timeouts, row-cap truncation, and credential
// redaction of every error message that leaves the engine.
//
// Policy decisions are fail-closed: a statement is classified by scanning
// its text with string literals and comments stripped, and anything that
// is not recognizably a single read or write statement is banned. Write
// statements additionally require the caller to present the configured
// admin confirmation token on every call.
//
// # Library Usage
//
//	m, err := msmcp.NewSQLServer(ctx, connString, msmcp.Config{
//		Pool:   msmcp.PoolSettings{MaxSize: 10},
//		Policy: msmcp.PolicySettings{ReadOnly: true},
//		Query: msmcp.QuerySettings{
//			TimeoutSeconds:       30,
//			SchemaTimeoutSeconds: 60,
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close(ctx)
//
//	// Use directly
//	out, err := m.ExecuteSQL(ctx, msmcp.ExecuteInput{SQL: "SELECT TOP 10 * FROM users"})
//
//	// Or register as MCP tools
//	msmcp.RegisterMCPTools(mcpServer, m)
//
// For tests and custom backends, New accepts any pool.Dialer, so the
// entire pipeline runs against fake connections without a server.
package msmcp
