package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	msmcp "github.com/sequelgate/mssql-mcp"
	"github.com/sequelgate/mssql-mcp/internal/metrics"
)

func runServe() error {
	ctx := context.Background()

	// 1. Load settings from the environment
	serverConfig, connString, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if serverConfig.Server.Transport == "http" && serverConfig.Server.Port <= 0 {
		panic("gomsmcp: HTTP_BIND_PORT must be > 0")
	}

	// 2. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 3. Create the engine
	registry := metrics.NewRegistry()
	m, err := msmcp.NewSQLServer(ctx, connString, serverConfig.Config, logger,
		msmcp.WithMetrics(registry),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer m.Close(ctx)

	// 4. Test database connection
	logger.Info().Msg("testing database connection")
	status := m.CheckConnection(ctx)
	if !status.Connected {
		logger.Error().Str("error", status.Error).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %s", status.Error)
	}
	logger.Info().Float64("latency_ms", status.LatencyMS).Msg("database connection test successful")

	// 5. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("gomsmcp", version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)
	msmcp.RegisterMCPTools(mcpServer, m)

	// 6. Serve
	if serverConfig.Server.Transport == "stdio" {
		logger.Info().Msg("starting gomsmcp server on stdio")
		return server.ServeStdio(mcpServer)
	}
	return serveHTTP(serverConfig, mcpServer, m, registry, logger)
}

// serveHTTP runs the streamable HTTP transport with liveness, readiness,
// and metrics endpoints on the same listener.
func serveHTTP(serverConfig *msmcp.ServerConfig, mcpServer *server.MCPServer, m *msmcp.MssqlMcp, registry *metrics.Registry, logger zerolog.Logger) error {
	addr := fmt.Sprintf("%s:%d", serverConfig.Server.Host, serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Liveness: process is up, nothing about the database.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Readiness: database must answer a ping.
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		status := m.CheckConnection(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !status.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(status)
	})

	// Server identity for operators.
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"name":    "gomsmcp",
			"version": version,
			"policy":  m.PolicyInfo(),
		})
	})

	if serverConfig.Server.MetricsEnabled {
		mux.Handle("/metrics", registry.Handler())
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler — Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Str("addr", addr).Msg("starting gomsmcp server")
	return streamableServer.Start(addr)
}
