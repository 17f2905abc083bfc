package msmcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sequelgate/mssql-mcp/internal/pool"
)

// PolicyDeniedError is returned when the policy engine refuses a statement.
// Reason is safe to surface to the caller verbatim.
type PolicyDeniedError struct {
	Reason string
	Rule   string // matched ban rule name, or the policy category
}

func (e *PolicyDeniedError) Error() string {
	return "query blocked by policy: " + e.Reason
}

// RateLimitedError is returned when the rate limiter rejects a request.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Millisecond))
}

// ExecutionTimeoutError is returned when a statement exceeds its deadline.
type ExecutionTimeoutError struct {
	Timeout time.Duration
}

func (e *ExecutionTimeoutError) Error() string {
	return fmt.Sprintf("query exceeded the %s execution timeout", e.Timeout)
}

// BackendError wraps a database error. Message has already been through
// credential redaction and is safe to return to the caller.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return "database error: " + e.Message
}

// RenderError is returned when the requested output format is not supported.
type RenderError struct {
	Format string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("cannot render result as %q", e.Format)
}

// statusLabel maps an execution error to the status label used on the
// queries_executed metric.
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var timeoutErr *ExecutionTimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}
	return "error"
}

// errorLabel maps a failure to the error_type label on the errors metric.
// Labels come from this fixed set only; never derive them from error text.
func errorLabel(err error) string {
	var (
		timeoutErr *ExecutionTimeoutError
		backendErr *BackendError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &backendErr):
		return "backend"
	case errors.Is(err, pool.ErrExhausted):
		return "pool_exhausted"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
