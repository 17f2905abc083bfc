// Package pool implements a bounded, lazily-dialed connection pool over a
// narrow backend interface, so the execution pipeline can be tested against
// in-memory fakes instead of a live database.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrExhausted is returned when no connection becomes free within the
// acquire timeout. Distinct from dial errors: the database may be fine, the
// pool is simply saturated.
var ErrExhausted = errors.New("connection pool exhausted: all connections are in use")

// Column describes a result-set column.
type Column struct {
	Name string
	Type string
}

// Rows is a streaming result set.
type Rows interface {
	Columns() []Column
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// Conn is a single live database session.
type Conn interface {
	Query(ctx context.Context, sql string) (Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens a new backend session.
type Dialer func(ctx context.Context) (Conn, error)

// Config is the pool's own config type.
type Config struct {
	MaxSize        int
	AcquireTimeout time.Duration
	PingOnAcquire  bool
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	InUse int
	Idle  int
}

// Pool owns at most MaxSize connections. Connections are dialed lazily,
// reused across calls, and discarded when released unhealthy — a single bad
// session never poisons the rest of the pool.
type Pool struct {
	dial   Dialer
	config Config
	slots  chan struct{}

	mu     sync.Mutex
	idle   []Conn
	closed bool
}

// New creates a new Pool. Panics on invalid config.
func New(dial Dialer, config Config) *Pool {
	if dial == nil {
		panic("pool: dialer must be non-nil")
	}
	if config.MaxSize <= 0 {
		panic("pool: max_size must be > 0")
	}
	if config.AcquireTimeout <= 0 {
		panic("pool: acquire_timeout must be > 0")
	}
	return &Pool{
		dial:   dial,
		config: config,
		slots:  make(chan struct{}, config.MaxSize),
	}
}

// Acquire returns a live connection, blocking until one is free or the
// acquire timeout elapses (ErrExhausted). Caller cancellation unblocks
// immediately. Every successful Acquire must be paired with a Release.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	timer := time.NewTimer(p.config.AcquireTimeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("%w (waited %s)", ErrExhausted, p.config.AcquireTimeout)
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire cancelled while waiting for a connection: %w", ctx.Err())
	}

	// Slot held from here; free it on any failure path.
	for {
		conn := p.popIdle()
		if conn == nil {
			break
		}
		if !p.config.PingOnAcquire {
			return conn, nil
		}
		if err := conn.Ping(ctx); err == nil {
			return conn, nil
		}
		// Stale session; discard and try the next idle one.
		conn.Close()
	}

	conn, err := p.dial(ctx)
	if err != nil {
		<-p.slots
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return conn, nil
}

// Release returns conn to the pool. An unhealthy connection is closed
// instead of being reused; the pool re-dials lazily on a later Acquire.
func (p *Pool) Release(conn Conn, healthy bool) {
	if conn == nil {
		return
	}
	p.mu.Lock()
	if healthy && !p.closed {
		p.idle = append(p.idle, conn)
		p.mu.Unlock()
	} else {
		p.mu.Unlock()
		conn.Close()
	}
	<-p.slots
}

// Stats reports current occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return Stats{InUse: len(p.slots), Idle: idle}
}

// Close closes all idle connections. Borrowed connections are closed as
// they are released.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, conn := range idle {
		conn.Close()
	}
}

func (p *Pool) popIdle() Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	conn := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return conn
}
