package msmcp

// Config is the base configuration used by library mode via New().
// It is constructed once at startup and treated as immutable for the
// lifetime of the process.
type Config struct {
	Pool      PoolSettings      `json:"pool"`
	Policy    PolicySettings    `json:"policy"`
	Query     QuerySettings     `json:"query"`
	RateLimit RateLimitSettings `json:"rate_limit"`
	Redaction []RedactionRule   `json:"redaction"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`
}

// PoolSettings holds connection pool settings.
type PoolSettings struct {
	MaxSize                  int `json:"max_size"`
	ConnectionTimeoutSeconds int `json:"connection_timeout_seconds"`
}

// PolicySettings controls which SQL statements are allowed.
type PolicySettings struct {
	ReadOnly          bool   `json:"read_only"`
	EnableWrites      bool   `json:"enable_writes"`
	AdminConfirmToken string `json:"admin_confirm_token"`
	MaxQueryLength    int    `json:"max_query_length"`

	// BannedRules replaces the built-in ban list when non-nil.
	BannedRules []PolicyRule `json:"banned_rules,omitempty"`
}

// PolicyRule is a named ban pattern with its refusal message.
type PolicyRule struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// QuerySettings holds query execution settings.
type QuerySettings struct {
	TimeoutSeconds       int `json:"timeout_seconds"`
	SchemaTimeoutSeconds int `json:"schema_timeout_seconds"`
	MaxRowsPerQuery      int `json:"max_rows_per_query"`
}

// RateLimitSettings holds rate limiter settings.
type RateLimitSettings struct {
	Enabled   bool `json:"enabled"`
	PerMinute int  `json:"per_minute"`
}

// RedactionRule is an extra pattern to replacement pair applied on top
// of the built-in credential rules.
type RedactionRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// ServerSettings holds transport settings for CLI mode.
type ServerSettings struct {
	Transport      string `json:"transport"` // stdio, http
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MetricsEnabled bool   `json:"metrics_enabled"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}
