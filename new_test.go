package msmcp

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sequelgate/mssql-mcp/internal/pool"
)

// expectPanic calls f and asserts that it panics with a message containing substr.
func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, but no panic occurred", substr)
		}
		msg, ok := r.(string)
		if !ok {
			t.Fatalf("expected panic string containing %q, got %T: %v", substr, r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	f()
}

func testDialer() pool.Dialer {
	return func(ctx context.Context) (pool.Conn, error) {
		return &fakeConn{}, nil
	}
}

func TestNewPanicsOnNilDialer(t *testing.T) {
	t.Parallel()
	expectPanic(t, "dial must be non-nil", func() {
		New(context.Background(), nil, testConfig(), zerolog.Nop())
	})
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"zero pool size", func(c *Config) { c.Pool.MaxSize = 0 }, "pool.max_size"},
		{"zero query timeout", func(c *Config) { c.Query.TimeoutSeconds = 0 }, "query.timeout_seconds"},
		{"zero schema timeout", func(c *Config) { c.Query.SchemaTimeoutSeconds = 0 }, "query.schema_timeout_seconds"},
		{"negative row cap", func(c *Config) { c.Query.MaxRowsPerQuery = -1 }, "query.max_rows_per_query"},
		{"rate limit without budget", func(c *Config) { c.RateLimit.Enabled = true }, "rate_limit.per_minute"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			config := testConfig()
			tc.mutate(&config)
			expectPanic(t, tc.substr, func() {
				New(context.Background(), testDialer(), config, zerolog.Nop())
			})
		})
	}
}

func TestNewRejectsBadPolicyPattern(t *testing.T) {
	t.Parallel()
	config := testConfig()
	config.Policy.BannedRules = []PolicyRule{{Name: "broken", Pattern: "(unclosed", Message: "x"}}
	if _, err := New(context.Background(), testDialer(), config, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid policy pattern")
	}
}

func TestNewRejectsBadRedactionPattern(t *testing.T) {
	t.Parallel()
	config := testConfig()
	config.Redaction = []RedactionRule{{Pattern: "[", Replacement: "x"}}
	if _, err := New(context.Background(), testDialer(), config, zerolog.Nop()); err == nil {
		t.Fatal("expected error for invalid redaction pattern")
	}
}

func TestCloseInvokesBackendShutdown(t *testing.T) {
	t.Parallel()
	m, err := New(context.Background(), testDialer(), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	called := false
	m.shutdown = func() error {
		called = true
		return nil
	}
	m.Close(context.Background())
	if !called {
		t.Error("Close did not release the backend")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()
	config := testConfig()
	config.Query.MaxRowsPerQuery = 0
	config.Policy.MaxQueryLength = 0
	m, err := New(context.Background(), testDialer(), config, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close(context.Background())

	info := m.PolicyInfo()
	if info.MaxRowsPerQuery != 50000 {
		t.Errorf("MaxRowsPerQuery default = %d, want 50000", info.MaxRowsPerQuery)
	}
	if info.MaxQueryLength != 50000 {
		t.Errorf("MaxQueryLength default = %d, want 50000", info.MaxQueryLength)
	}
}
