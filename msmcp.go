package msmcp

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sequelgate/mssql-mcp/internal/metrics"
	"github.com/sequelgate/mssql-mcp/internal/policy"
	"github.com/sequelgate/mssql-mcp/internal/pool"
	"github.com/sequelgate/mssql-mcp/internal/ratelimit"
	"github.com/sequelgate/mssql-mcp/internal/redact"
)

// MssqlMcp is the core engine that sits between MCP tool calls and a SQL
// Server database: policy evaluation, rate limiting, pooled execution,
// result rendering, and credential redaction. All exported methods are
// safe for concurrent use from multiple goroutines.
type MssqlMcp struct {
	config   Config
	pool     *pool.Pool
	policy   *policy.Engine
	limiter  *ratelimit.Limiter
	redactor *redact.Redactor
	metrics  *metrics.Registry
	logger   zerolog.Logger

	// shutdown releases backend resources owned by the constructor (the
	// sql.DB behind NewSQLServer). Nil when the caller owns the backend.
	shutdown func() error
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	metrics *metrics.Registry
}

// WithMetrics attaches a metrics registry. Without it the engine keeps
// counters in a private registry that nothing exposes.
func WithMetrics(r *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// New creates a new MssqlMcp instance on top of dial, which opens one
// database connection per call. Panics on invalid config. Returns error
// only for runtime failures (e.g., bad policy or redaction patterns
// supplied at runtime).
func New(ctx context.Context, dial pool.Dialer, config Config, logger zerolog.Logger, opts ...Option) (*MssqlMcp, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// --- Config validation (panics on invalid config) ---

	if dial == nil {
		panic("msmcp: dial must be non-nil")
	}
	if config.Pool.MaxSize <= 0 {
		panic("msmcp: pool.max_size must be > 0")
	}
	if config.Query.TimeoutSeconds <= 0 {
		panic("msmcp: query.timeout_seconds must be > 0")
	}
	if config.Query.SchemaTimeoutSeconds <= 0 {
		panic("msmcp: query.schema_timeout_seconds must be > 0")
	}
	if config.Query.MaxRowsPerQuery < 0 {
		panic("msmcp: query.max_rows_per_query must be >= 0")
	}
	if config.RateLimit.Enabled && config.RateLimit.PerMinute <= 0 {
		panic("msmcp: rate_limit.per_minute must be > 0 when rate limiting is enabled")
	}

	// Apply defaults for zero values
	if config.Query.MaxRowsPerQuery == 0 {
		config.Query.MaxRowsPerQuery = 50000
	}
	if config.Policy.MaxQueryLength == 0 {
		config.Policy.MaxQueryLength = 50000
	}
	if config.Pool.ConnectionTimeoutSeconds == 0 {
		config.Pool.ConnectionTimeoutSeconds = 30
	}

	// --- Initialize internal components ---

	rules := policy.DefaultRules()
	if config.Policy.BannedRules != nil {
		rules = make([]policy.Rule, len(config.Policy.BannedRules))
		for i, r := range config.Policy.BannedRules {
			rules[i] = policy.Rule{Name: r.Name, Pattern: r.Pattern, Message: r.Message}
		}
	}
	engine, err := policy.NewEngine(policy.Config{
		ReadOnly:          config.Policy.ReadOnly,
		EnableWrites:      config.Policy.EnableWrites,
		AdminConfirmToken: config.Policy.AdminConfirmToken,
		MaxQueryLength:    config.Policy.MaxQueryLength,
		Rules:             rules,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build policy engine: %w", err)
	}

	extra := make([]redact.Rule, len(config.Redaction))
	for i, r := range config.Redaction {
		extra[i] = redact.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	redactor, err := redact.New(extra)
	if err != nil {
		return nil, fmt.Errorf("failed to build redactor: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Enabled:   config.RateLimit.Enabled,
		PerWindow: config.RateLimit.PerMinute,
		Window:    time.Minute,
	})

	connPool := pool.New(dial, pool.Config{
		MaxSize:        config.Pool.MaxSize,
		AcquireTimeout: time.Duration(config.Pool.ConnectionTimeoutSeconds) * time.Second,
		PingOnAcquire:  true,
	})

	reg := o.metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}

	return &MssqlMcp{
		config:   config,
		pool:     connPool,
		policy:   engine,
		limiter:  limiter,
		redactor: redactor,
		metrics:  reg,
		logger:   logger,
	}, nil
}

// Close closes the connection pool and any backend opened by the
// constructor. Accepts context for API forward-compatibility, but does not
// currently use it.
func (m *MssqlMcp) Close(ctx context.Context) {
	m.pool.Close()
	if m.shutdown != nil {
		if err := m.shutdown(); err != nil {
			m.logger.Warn().Err(err).Msg("backend shutdown failed")
		}
	}
	m.metrics.SetReady(false)
}
