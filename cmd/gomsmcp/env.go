package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	msmcp "github.com/sequelgate/mssql-mcp"
)

// loadSettings builds the server configuration from environment variables,
// loading a .env file first if one is present. The connection string is
// returned separately so it never rides inside a config struct that might
// get logged.
func loadSettings() (*msmcp.ServerConfig, string, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	connString := os.Getenv("MSSQL_CONNECTION_STRING")
	if connString == "" {
		return nil, "", fmt.Errorf("MSSQL_CONNECTION_STRING is required")
	}

	config := &msmcp.ServerConfig{
		Config: msmcp.Config{
			Pool: msmcp.PoolSettings{
				MaxSize:                  envInt("MSSQL_MAX_POOL_SIZE", 10),
				ConnectionTimeoutSeconds: envInt("MSSQL_CONNECTION_TIMEOUT", 30),
			},
			Policy: msmcp.PolicySettings{
				ReadOnly:          envBool("READ_ONLY", true),
				EnableWrites:      envBool("ENABLE_WRITES", false),
				AdminConfirmToken: os.Getenv("ADMIN_CONFIRM"),
				MaxQueryLength:    envInt("MAX_QUERY_LENGTH", 50000),
			},
			Query: msmcp.QuerySettings{
				TimeoutSeconds:       envInt("MSSQL_QUERY_TIMEOUT", 30),
				SchemaTimeoutSeconds: envInt("MSSQL_SCHEMA_TIMEOUT", 60),
				MaxRowsPerQuery:      envInt("MAX_ROWS_PER_QUERY", 50000),
			},
			RateLimit: msmcp.RateLimitSettings{
				Enabled:   envBool("RATE_LIMIT_ENABLED", false),
				PerMinute: envInt("RATE_LIMIT_QUERIES_PER_MINUTE", 1000),
			},
		},
		Server: msmcp.ServerSettings{
			Transport:      env("MCP_TRANSPORT", "stdio"),
			Host:           env("HTTP_BIND_HOST", "127.0.0.1"),
			Port:           envInt("HTTP_BIND_PORT", 8080),
			MetricsEnabled: envBool("ENABLE_METRICS", true),
		},
		Logging: msmcp.LoggingConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
	}

	switch config.Server.Transport {
	case "stdio", "http":
	default:
		return nil, "", fmt.Errorf("MCP_TRANSPORT must be 'stdio' or 'http', got %q", config.Server.Transport)
	}

	return config, connString, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	case "0", "f", "false", "n", "no", "off":
		return false
	}
	return fallback
}

func setupLogger(config msmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Logs always go to stderr: stdout belongs to the stdio transport.
	var output io.Writer = os.Stderr
	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
