package msmcp

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/rs/zerolog"

	"github.com/sequelgate/mssql-mcp/internal/pool"
)

// NewSQLServer creates an MssqlMcp backed by a real SQL Server, reachable
// via connString (any form go-mssqldb accepts: URL, ADO, or ODBC). The
// underlying sql.DB is opened once; the engine's pool hands out dedicated
// sessions from it.
func NewSQLServer(ctx context.Context, connString string, config Config, logger zerolog.Logger, opts ...Option) (*MssqlMcp, error) {
	if connString == "" {
		panic("msmcp: connString must be non-empty")
	}

	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if config.Pool.MaxSize > 0 {
		db.SetMaxOpenConns(config.Pool.MaxSize)
	}

	dial := func(ctx context.Context) (pool.Conn, error) {
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open connection: %w", err)
		}
		return &sqlConn{conn: conn}, nil
	}

	m, err := New(ctx, dial, config, logger, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	m.shutdown = db.Close
	return m, nil
}

// sqlConn adapts *sql.Conn to the pool.Conn interface.
type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, query string) (pool.Rows, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return newSQLRows(rows)
}

func (c *sqlConn) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

func (c *sqlConn) Close() error {
	return c.conn.Close()
}

// sqlRows adapts *sql.Rows to the pool.Rows interface. database/sql scans
// into typed destinations, so Values() scans each row into a slice of
// interface pointers and unwraps it.
type sqlRows struct {
	rows    *sql.Rows
	columns []pool.Column
}

func newSQLRows(rows *sql.Rows) (*sqlRows, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, err
	}
	columns := make([]pool.Column, len(types))
	for i, t := range types {
		columns[i] = pool.Column{
			Name: t.Name(),
			Type: t.DatabaseTypeName(),
		}
	}
	return &sqlRows{rows: rows, columns: columns}, nil
}

func (r *sqlRows) Columns() []pool.Column {
	return r.columns
}

func (r *sqlRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlRows) Values() ([]any, error) {
	holders := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range holders {
		ptrs[i] = &holders[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return holders, nil
}

func (r *sqlRows) Err() error {
	return r.rows.Err()
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}
