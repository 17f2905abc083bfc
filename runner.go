package msmcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/sequelgate/mssql-mcp/internal/pool"
)

// ColumnMeta describes one column of an executed statement.
type ColumnMeta struct {
	Name string
	Type string
}

// ExecutionResult is the raw outcome of a statement before rendering.
type ExecutionResult struct {
	Columns   []ColumnMeta
	Rows      [][]any
	RowCount  int
	Truncated bool
}

// runStatement executes sql on conn, collecting at most maxRows rows. It
// reads one row past the cap to distinguish "exactly maxRows rows" from a
// truncated result. The returned bool reports whether the connection is
// still usable: false on timeout (the statement may still be running
// server-side) and on transport failures, true on statement-level errors
// like bad syntax or missing tables.
func (m *MssqlMcp) runStatement(ctx context.Context, conn pool.Conn, sql string, maxRows int) (*ExecutionResult, bool, error) {
	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, connStillHealthy(ctx, err), m.classifyError(ctx, err)
	}
	defer rows.Close()

	cols := rows.Columns()
	meta := make([]ColumnMeta, len(cols))
	for i, c := range cols {
		meta[i] = ColumnMeta{Name: c.Name, Type: c.Type}
	}

	collected := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(collected) == maxRows {
			truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, connStillHealthy(ctx, err), m.classifyError(ctx, err)
		}
		collected = append(collected, values)
	}
	if err := rows.Err(); err != nil {
		return nil, connStillHealthy(ctx, err), m.classifyError(ctx, err)
	}

	return &ExecutionResult{
		Columns:   meta,
		Rows:      collected,
		RowCount:  len(collected),
		Truncated: truncated,
	}, true, nil
}

// classifyError converts a driver error into the typed error surfaced to
// callers. Backend messages pass through the redactor so connection
// strings and credentials embedded in driver errors never reach the agent.
func (m *MssqlMcp) classifyError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return &ExecutionTimeoutError{Timeout: time.Duration(m.config.Query.TimeoutSeconds) * time.Second}
	}
	if errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	return &BackendError{Message: m.redactor.Error(err)}
}

// connStillHealthy reports whether conn can go back to the idle list after
// err. Timeouts and transport-level failures poison the connection.
func connStillHealthy(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return false
	}
	var netErr net.Error
	return !errors.As(err, &netErr)
}
