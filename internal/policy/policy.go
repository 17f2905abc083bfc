package policy

import (
	"crypto/subtle"
	"fmt"
	"regexp"
	"strings"
)

// Mode classifies a SQL statement.
type Mode string

const (
	ModeRead           Mode = "read"
	ModeWrite          Mode = "write"
	ModeMultiStatement Mode = "multi_statement"
	ModeBanned         Mode = "banned"
)

// Verdict is the allow/deny decision for a single statement.
// Constructed fresh per evaluation, never mutated afterwards.
type Verdict struct {
	Allowed     bool
	Mode        Mode
	Reason      string
	MatchedRule string
}

// Rule is a named ban pattern. Matching statements are rejected regardless
// of read/write mode — these cover destructive and administrative commands,
// not ordinary DML.
type Rule struct {
	Name    string
	Pattern string
	Message string
}

// DefaultRules returns the built-in ban list for SQL Server. Patterns are
// matched case-insensitively against SQL with string literals, quoted and
// bracketed identifiers, and comments stripped.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "extended_procedure", Pattern: `\bxp_\w+`, Message: "extended stored procedures are not allowed"},
		{Name: "system_procedure", Pattern: `\bsp_\w+`, Message: "system stored procedures are not allowed"},
		{Name: "exec", Pattern: `\bEXEC(UTE)?\b`, Message: "EXEC is not allowed"},
		{Name: "kill", Pattern: `\bKILL\b`, Message: "KILL is not allowed"},
		{Name: "shutdown", Pattern: `\bSHUTDOWN\b`, Message: "SHUTDOWN is not allowed"},
		{Name: "drop", Pattern: `\bDROP\b`, Message: "DROP is not allowed"},
		{Name: "alter", Pattern: `\bALTER\b`, Message: "ALTER is not allowed"},
		{Name: "truncate", Pattern: `\bTRUNCATE\b`, Message: "TRUNCATE is not allowed"},
		{Name: "grant", Pattern: `\bGRANT\b`, Message: "GRANT is not allowed"},
		{Name: "deny", Pattern: `\bDENY\b`, Message: "DENY is not allowed"},
		{Name: "revoke", Pattern: `\bREVOKE\b`, Message: "REVOKE is not allowed"},
	}
}

// Config is the policy engine's own config type.
type Config struct {
	ReadOnly          bool
	EnableWrites      bool
	AdminConfirmToken string
	MaxQueryLength    int
	Rules             []Rule // nil means DefaultRules()
}

type compiledRule struct {
	name    string
	pattern *regexp.Regexp
	message string
}

// Engine evaluates SQL statements against the configured policy. Safe for
// concurrent use; holds no mutable state after construction.
type Engine struct {
	config Config
	rules  []compiledRule
}

// NewEngine creates a new Engine. Returns an error on invalid rule patterns.
func NewEngine(config Config) (*Engine, error) {
	rules := config.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("policy: invalid rule pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{name: r.Name, pattern: re, message: r.Message}
	}
	return &Engine{config: config, rules: compiled}, nil
}

// RuleNames returns the names of the configured ban rules, in order.
func (e *Engine) RuleNames() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.name
	}
	return names
}

// Evaluate classifies sql and decides whether it may run. adminConfirm is
// the caller-supplied write confirmation token; it is compared against the
// configured token in constant time and the verdict never reveals which
// condition failed.
//
// Evaluation is purely textual: a denial costs no database round trip.
func (e *Engine) Evaluate(sql, adminConfirm string) Verdict {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return Verdict{Mode: ModeBanned, Reason: "empty SQL statement"}
	}
	if e.config.MaxQueryLength > 0 && len(sql) > e.config.MaxQueryLength {
		return Verdict{
			Mode:   ModeBanned,
			Reason: fmt.Sprintf("query too long: %d bytes exceeds maximum of %d bytes", len(sql), e.config.MaxQueryLength),
		}
	}

	cleaned := StripLiteralsAndComments(trimmed)

	// Any residual separator means a second executable statement could be
	// spliced on, even when the leading clause looks benign. Trailing
	// semicolons are rejected too; the scan stays conservative.
	if strings.Contains(cleaned, ";") {
		return Verdict{Mode: ModeMultiStatement, Reason: "multi-statement not allowed"}
	}

	for _, rule := range e.rules {
		if rule.pattern.MatchString(cleaned) {
			return Verdict{
				Mode:        ModeBanned,
				Reason:      rule.message,
				MatchedRule: rule.name,
			}
		}
	}

	mode := classify(cleaned)
	switch mode {
	case ModeRead:
		return Verdict{Allowed: true, Mode: ModeRead}
	case ModeWrite:
		if e.writeAllowed(adminConfirm) {
			return Verdict{Allowed: true, Mode: ModeWrite}
		}
		return Verdict{Mode: ModeWrite, Reason: "write operations require admin confirmation"}
	default:
		// Unknown statement shapes are never implicitly trusted.
		return Verdict{Mode: ModeBanned, Reason: "unrecognized statement type"}
	}
}

// writeAllowed reports whether a WRITE statement may run. An empty
// configured token always denies: writes must be deliberately armed.
func (e *Engine) writeAllowed(adminConfirm string) bool {
	if !e.config.EnableWrites || e.config.ReadOnly {
		return false
	}
	if e.config.AdminConfirmToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(adminConfirm), []byte(e.config.AdminConfirmToken)) == 1
}

// classify determines the statement mode from the leading keyword of the
// cleaned SQL.
func classify(cleaned string) Mode {
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ModeBanned
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH":
		return ModeRead
	case "INSERT", "UPDATE", "DELETE":
		return ModeWrite
	default:
		return ModeBanned
	}
}
