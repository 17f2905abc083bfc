package ratelimit

import (
	"sync"
	"time"
)

// GlobalKey is the shared key used when no caller identity is supplied.
const GlobalKey = "global"

// Config is the limiter's own config type.
type Config struct {
	Enabled   bool
	PerWindow int
	Window    time.Duration // 0 means one minute
}

// Decision is the outcome of a TryAcquire call. RetryAfter is set only when
// the call was rejected, and is the time until the oldest counted request
// ages out of the window.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type window struct {
	mu    sync.Mutex
	times []time.Time
}

// Limiter bounds accepted requests per key to PerWindow within a sliding
// window. Safe for concurrent use; each key carries its own lock so
// unrelated callers do not serialize on one another.
type Limiter struct {
	enabled   bool
	perWindow int
	size      time.Duration
	now       func() time.Time

	mu   sync.Mutex
	keys map[string]*window
}

// New creates a new Limiter.
func New(config Config) *Limiter {
	size := config.Window
	if size == 0 {
		size = time.Minute
	}
	return &Limiter{
		enabled:   config.Enabled,
		perWindow: config.PerWindow,
		size:      size,
		now:       time.Now,
		keys:      make(map[string]*window),
	}
}

// TryAcquire records one request for key and reports whether it is within
// the limit. An empty key falls back to GlobalKey.
func (l *Limiter) TryAcquire(key string) Decision {
	if !l.enabled {
		return Decision{Allowed: true}
	}
	if key == "" {
		key = GlobalKey
	}

	l.mu.Lock()
	w, ok := l.keys[key]
	if !ok {
		w = &window{}
		l.keys[key] = w
	}
	l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.size)

	w.mu.Lock()
	defer w.mu.Unlock()

	// Age out anything outside the window.
	kept := w.times[:0]
	for _, ts := range w.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.times = kept

	if len(w.times) >= l.perWindow {
		oldest := w.times[0]
		return Decision{RetryAfter: l.size - now.Sub(oldest)}
	}

	w.times = append(w.times, now)
	return Decision{Allowed: true}
}
