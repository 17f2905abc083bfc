package msmcp

// PolicyInfo returns a snapshot of the active policy. It never touches
// the database, so the agent can call it before the first query to learn
// what the gatekeeper will and will not allow.
func (m *MssqlMcp) PolicyInfo() *PolicyInfoOutput {
	out := &PolicyInfoOutput{
		ReadOnly:        m.config.Policy.ReadOnly,
		WritesEnabled:   m.config.Policy.EnableWrites && !m.config.Policy.ReadOnly,
		AdminConfirmSet: m.config.Policy.AdminConfirmToken != "",
		MaxQueryLength:  m.config.Policy.MaxQueryLength,
		MaxRowsPerQuery: m.config.Query.MaxRowsPerQuery,
		BannedRules:     m.policy.RuleNames(),
	}
	out.RateLimit.Enabled = m.config.RateLimit.Enabled
	out.RateLimit.PerMinute = m.config.RateLimit.PerMinute
	return out
}
