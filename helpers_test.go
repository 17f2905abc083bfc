package msmcp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sequelgate/mssql-mcp/internal/pool"
)

// --- Fake backend for pipeline tests ---

// fakeResult is one scripted Query outcome.
type fakeResult struct {
	columns []pool.Column
	rows    [][]any
	err     error
}

// fakeConn serves scripted results in order; the last result repeats. A
// non-zero block duration makes Query hang until the context is done or
// the duration elapses, whichever comes first.
type fakeConn struct {
	mu      sync.Mutex
	results []fakeResult
	next    int
	queries []string
	pingErr error
	block   time.Duration
	closed  bool
}

func (c *fakeConn) Query(ctx context.Context, sql string) (pool.Rows, error) {
	if c.block > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.block):
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, sql)
	if len(c.results) == 0 {
		return &fakeRows{}, nil
	}
	res := c.results[c.next]
	if c.next < len(c.results)-1 {
		c.next++
	}
	if res.err != nil {
		return nil, res.err
	}
	return &fakeRows{columns: res.columns, rows: res.rows}, nil
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) lastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queries) == 0 {
		return ""
	}
	return c.queries[len(c.queries)-1]
}

type fakeRows struct {
	columns []pool.Column
	rows    [][]any
	pos     int
}

func (r *fakeRows) Columns() []pool.Column { return r.columns }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close() error           { return nil }

// --- Engine construction helpers ---

func testConfig() Config {
	return Config{
		Pool: PoolSettings{MaxSize: 2, ConnectionTimeoutSeconds: 1},
		Policy: PolicySettings{
			ReadOnly:       true,
			MaxQueryLength: 1000,
		},
		Query: QuerySettings{
			TimeoutSeconds:       1,
			SchemaTimeoutSeconds: 1,
			MaxRowsPerQuery:      100,
		},
	}
}

// newTestEngine builds an engine over conn with test defaults; mutate, if
// non-nil, adjusts the config first.
func newTestEngine(t *testing.T, conn pool.Conn, mutate func(*Config), opts ...Option) *MssqlMcp {
	t.Helper()
	config := testConfig()
	if mutate != nil {
		mutate(&config)
	}
	dial := func(ctx context.Context) (pool.Conn, error) {
		return conn, nil
	}
	m, err := New(context.Background(), dial, config, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

// usersResult is a small canned result set shared across tests.
func usersResult() fakeResult {
	return fakeResult{
		columns: []pool.Column{{Name: "id", Type: "INT"}, {Name: "name", Type: "NVARCHAR"}},
		rows: [][]any{
			{int64(1), "alice"},
			{int64(2), "bob"},
		},
	}
}
