package msmcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/sequelgate/mssql-mcp/internal/render"
)

// ExecuteSQL runs the full gatekeeper pipeline: format validation, policy
// evaluation, rate limiting, pooled execution with timeout and row cap,
// and rendering. Policy and rate limit rejections come back as typed
// errors; callers must not retry a *PolicyDeniedError.
func (m *MssqlMcp) ExecuteSQL(ctx context.Context, input ExecuteInput) (*ExecuteOutput, error) {
	m.metrics.QueryStarted()
	defer m.metrics.QueryFinished()

	// 1. Validate the output format before spending any database work.
	format, err := render.ParseFormat(input.Format)
	if err != nil {
		m.metrics.QueryExecuted("execute_sql", "error")
		return nil, &RenderError{Format: input.Format}
	}

	// 2. Policy check. Runs before the rate limiter so a blocked query
	// never consumes the caller's budget.
	verdict := m.policy.Evaluate(input.SQL, input.AdminConfirm)
	if !verdict.Allowed {
		reason := verdict.MatchedRule
		if reason == "" {
			reason = string(verdict.Mode)
		}
		m.metrics.QueryBlocked(reason)
		m.logger.Warn().
			Str("sql_hash", hashSQL(input.SQL)).
			Str("mode", string(verdict.Mode)).
			Str("rule", verdict.MatchedRule).
			Msg("query blocked")
		return nil, &PolicyDeniedError{Reason: verdict.Reason, Rule: verdict.MatchedRule}
	}

	// 3. Rate limit.
	decision := m.limiter.TryAcquire(input.Caller)
	if !decision.Allowed {
		m.metrics.QueryBlocked("rate_limited")
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	// 4. Acquire a connection and execute under the query timeout.
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		m.metrics.QueryExecuted("execute_sql", "error")
		m.metrics.ErrorOccurred(errorLabel(err))
		return nil, err
	}
	m.metrics.SetActiveConnections(m.pool.Stats().InUse)

	timeout := time.Duration(m.config.Query.TimeoutSeconds) * time.Second
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, healthy, execErr := m.runStatement(queryCtx, conn, input.SQL, m.config.Query.MaxRowsPerQuery)
	elapsed := time.Since(start)
	m.pool.Release(conn, healthy)
	m.metrics.SetActiveConnections(m.pool.Stats().InUse)

	status := statusLabel(execErr)
	m.metrics.QueryExecuted("execute_sql", status)
	m.metrics.ObserveDuration("execute_sql", elapsed)
	if execErr != nil {
		m.metrics.ErrorOccurred(errorLabel(execErr))
		m.logger.Error().
			Str("sql_hash", hashSQL(input.SQL)).
			Str("status", status).
			Str("error", execErr.Error()).
			Msg("query failed")
		return nil, execErr
	}

	// 5. Render.
	rendered, err := render.Render(render.Result{Columns: columnNames(result.Columns), Rows: result.Rows}, format)
	if err != nil {
		m.metrics.QueryExecuted("execute_sql", "error")
		return nil, &RenderError{Format: string(format)}
	}

	durationMS := float64(elapsed) / float64(time.Millisecond)
	m.metrics.ObserveRows("execute_sql", result.RowCount)
	m.logger.Info().
		Str("sql_hash", hashSQL(input.SQL)).
		Str("sql", truncateForLog(m.redactor.String(input.SQL), 200)).
		Str("mode", string(verdict.Mode)).
		Float64("duration_ms", durationMS).
		Int("row_count", result.RowCount).
		Bool("truncated", result.Truncated).
		Msg("query executed")

	return &ExecuteOutput{
		Rendered:    rendered,
		RowCount:    result.RowCount,
		ColumnCount: len(result.Columns),
		Truncated:   result.Truncated,
		DurationMS:  durationMS,
	}, nil
}

func columnNames(cols []ColumnMeta) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// hashSQL returns a short identifier for correlating log lines about the
// same statement without logging the statement itself at warn level.
func hashSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:8])
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
