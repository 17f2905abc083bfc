package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fixedClock lets tests advance time manually.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(perWindow int) (*Limiter, *fixedClock) {
	clock := &fixedClock{now: time.Unix(1700000000, 0)}
	l := New(Config{Enabled: true, PerWindow: perWindow})
	l.now = clock.Now
	return l, clock
}

func TestThirdCallRejected(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(2)

	if d := l.TryAcquire("agent"); !d.Allowed {
		t.Fatal("first call should be allowed")
	}
	if d := l.TryAcquire("agent"); !d.Allowed {
		t.Fatal("second call should be allowed")
	}
	d := l.TryAcquire("agent")
	if d.Allowed {
		t.Fatal("third call within window should be rejected")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("unexpected retry-after %v", d.RetryAfter)
	}
}

func TestWindowSlides(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(1)

	if d := l.TryAcquire("agent"); !d.Allowed {
		t.Fatal("first call should be allowed")
	}
	if d := l.TryAcquire("agent"); d.Allowed {
		t.Fatal("second call should be rejected")
	}

	clock.Advance(61 * time.Second)
	if d := l.TryAcquire("agent"); !d.Allowed {
		t.Fatal("call after window expiry should be allowed")
	}
}

func TestRetryAfterMatchesOldestEntry(t *testing.T) {
	t.Parallel()
	l, clock := newTestLimiter(2)

	l.TryAcquire("agent")
	clock.Advance(20 * time.Second)
	l.TryAcquire("agent")
	clock.Advance(10 * time.Second)

	d := l.TryAcquire("agent")
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	// Oldest entry is 30s old; it ages out in 30s.
	if d.RetryAfter != 30*time.Second {
		t.Errorf("expected 30s retry-after, got %v", d.RetryAfter)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(1)

	if d := l.TryAcquire("a"); !d.Allowed {
		t.Fatal("key a should be allowed")
	}
	if d := l.TryAcquire("b"); !d.Allowed {
		t.Fatal("key b has its own window")
	}
	if d := l.TryAcquire("a"); d.Allowed {
		t.Fatal("key a should now be limited")
	}
}

func TestEmptyKeyUsesGlobal(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(1)

	if d := l.TryAcquire(""); !d.Allowed {
		t.Fatal("first global call should be allowed")
	}
	if d := l.TryAcquire(GlobalKey); d.Allowed {
		t.Fatal("empty key and GlobalKey share one window")
	}
}

func TestDisabledAlwaysAllows(t *testing.T) {
	t.Parallel()
	l := New(Config{Enabled: false, PerWindow: 1})
	for i := 0; i < 100; i++ {
		if d := l.TryAcquire("agent"); !d.Allowed {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

func TestConcurrentAcquire(t *testing.T) {
	t.Parallel()
	l, _ := newTestLimiter(50)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("agent").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed, got %d", allowed)
	}
}
