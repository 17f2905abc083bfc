package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	msmcp "github.com/sequelgate/mssql-mcp"
)

func runCheck() error {
	useColor := isTTY(os.Stderr.Fd())
	return check(os.Stderr, useColor)
}

func check(w io.Writer, useColor bool) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gomsmcp %s\n\n", version)

	config, connString, ok := checkSettings(w, useColor)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gomsmcp check' again.")
		return nil
	}

	fmt.Fprintln(w)
	checkDatabase(w, useColor, config, connString)

	fmt.Fprintln(w)
	printPolicySummary(w, useColor, config)
	return nil
}

// checkSettings validates the environment-derived configuration, printing
// one check line per concern. Returns the config and true if all passed.
func checkSettings(w io.Writer, useColor bool) (*msmcp.ServerConfig, string, bool) {
	allPassed := true

	config, connString, err := loadSettings()
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Settings load from environment: %v", err))
		return nil, "", false
	}
	printCheck(w, useColor, true, "Settings loaded from environment")

	if config.Pool.MaxSize <= 0 {
		printCheck(w, useColor, false, "MSSQL_MAX_POOL_SIZE is > 0")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("MSSQL_MAX_POOL_SIZE is > 0 (%d)", config.Pool.MaxSize))
	}

	if config.Query.TimeoutSeconds <= 0 {
		printCheck(w, useColor, false, "MSSQL_QUERY_TIMEOUT is > 0")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("MSSQL_QUERY_TIMEOUT is > 0 (%ds)", config.Query.TimeoutSeconds))
	}

	if config.Policy.EnableWrites && config.Policy.AdminConfirmToken == "" {
		printCheck(w, useColor, false, "ADMIN_CONFIRM is set (required when ENABLE_WRITES=true; writes will stay locked)")
		allPassed = false
	} else if config.Policy.EnableWrites {
		printCheck(w, useColor, true, "ADMIN_CONFIRM is set for write unlocking")
	}

	if config.RateLimit.Enabled && config.RateLimit.PerMinute <= 0 {
		printCheck(w, useColor, false, "RATE_LIMIT_QUERIES_PER_MINUTE is > 0 (required when RATE_LIMIT_ENABLED=true)")
		allPassed = false
	}

	regexOK := true
	for i, rule := range config.Policy.BannedRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("banned_rules[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}
	for i, rule := range config.Redaction {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("redaction[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}
	if regexOK {
		printCheck(w, useColor, true, "All regex patterns compile")
	}

	return config, connString, allPassed
}

// checkDatabase attempts a real connection and ping.
func checkDatabase(w io.Writer, useColor bool, config *msmcp.ServerConfig, connString string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.Pool.ConnectionTimeoutSeconds)*time.Second)
	defer cancel()

	logger := setupLogger(msmcp.LoggingConfig{Level: "error", Format: "json"})
	m, err := msmcp.NewSQLServer(ctx, connString, config.Config, logger)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database engine created: %v", err))
		return
	}
	defer m.Close(ctx)

	status := m.CheckConnection(ctx)
	if !status.Connected {
		printCheck(w, useColor, false, fmt.Sprintf("Database reachable: %s", status.Error))
		return
	}
	printCheck(w, useColor, true, fmt.Sprintf("Database reachable (%.1f ms round trip)", status.LatencyMS))

	info, err := m.GetDatabaseInfo(ctx)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Server info readable: %v", err))
		return
	}
	printCheck(w, useColor, true, fmt.Sprintf("Connected to %s (%s, %s)", info.Database, info.Edition, info.Level))
}

// printPolicySummary prints the effective access policy so an operator can
// confirm what the agent will be allowed to do before wiring it up.
func printPolicySummary(w io.Writer, useColor bool, config *msmcp.ServerConfig) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	heading("Effective Policy")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Read-only:           %t\n", config.Policy.ReadOnly)
	fmt.Fprintf(w, "  Writes enabled:      %t\n", config.Policy.EnableWrites && !config.Policy.ReadOnly)
	fmt.Fprintf(w, "  Admin confirm set:   %t\n", config.Policy.AdminConfirmToken != "")
	fmt.Fprintf(w, "  Max rows per query:  %d\n", config.Query.MaxRowsPerQuery)
	fmt.Fprintf(w, "  Max query length:    %d\n", config.Policy.MaxQueryLength)
	if config.RateLimit.Enabled {
		fmt.Fprintf(w, "  Rate limit:          %d queries/minute\n", config.RateLimit.PerMinute)
	} else {
		fmt.Fprintf(w, "  Rate limit:          disabled\n")
	}
	fmt.Fprintln(w)

	if config.Server.Transport == "http" {
		url := fmt.Sprintf("http://%s:%d/mcp", config.Server.Host, config.Server.Port)
		heading("Agent Connection")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  claude mcp add --transport http mssql %s\n", url)
		fmt.Fprintln(w)
		fmt.Fprintf(w, `  {
    "mcpServers": {
      "mssql": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	}
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}
