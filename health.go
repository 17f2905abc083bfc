package msmcp

import (
	"context"
	"time"
)

// CheckConnection acquires a connection and pings it, reporting round-trip
// latency. A failed check never returns a Go error; the outcome lands in
// the status struct so the agent always gets a parseable answer.
func (m *MssqlMcp) CheckConnection(ctx context.Context) *ConnectionStatus {
	start := time.Now()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		m.metrics.SetReady(false)
		m.metrics.ErrorOccurred("connection")
		return &ConnectionStatus{Connected: false, Error: m.redactor.Error(err)}
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(m.config.Pool.ConnectionTimeoutSeconds)*time.Second)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		m.pool.Release(conn, false)
		m.metrics.SetReady(false)
		m.metrics.ErrorOccurred("connection")
		m.logger.Warn().Str("error", m.redactor.Error(err)).Msg("connection check failed")
		return &ConnectionStatus{Connected: false, Error: m.redactor.Error(err)}
	}
	m.pool.Release(conn, true)

	latency := float64(time.Since(start)) / float64(time.Millisecond)
	m.metrics.SetReady(true)
	return &ConnectionStatus{Connected: true, LatencyMS: latency}
}
