// Package ratelimit implements the per-principal fixed-window request limiter
// consulted by the rate guard once the caller's identity is known.
package ratelimit

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	DefaultMax              = 20
	DefaultWindow           = time.Minute
	DefaultSweepProbability = 0.1
)

// Config tunes a WindowLimiter.
type Config struct {
	Max              int
	Window           time.Duration
	SweepProbability float64
}

// entry is one principal's window. mu serialises the check-and-increment for
// that principal; dead marks an entry removed by a sweep.
type entry struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
	dead    bool
}

// WindowLimiter resets a principal's counter a fixed duration after the first
// request of its window. State is in-memory and per process.
type WindowLimiter struct {
	max    int
	window time.Duration
	sweepP float64

	mu      sync.RWMutex
	entries map[string]*entry

	now    func() time.Time
	random func() float64
}

var _ ports.RateLimiter = (*WindowLimiter)(nil)

func New(cfg Config) *WindowLimiter {
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SweepProbability < 0 {
		cfg.SweepProbability = 0
	}
	return &WindowLimiter{
		max:     cfg.Max,
		window:  cfg.Window,
		sweepP:  cfg.SweepProbability,
		entries: make(map[string]*entry),
		now:     time.Now,
		random:  rand.Float64,
	}
}

// WithClock replaces the time source. Intended for tests.
func (l *WindowLimiter) WithClock(now func() time.Time) *WindowLimiter {
	l.now = now
	return l
}

// WithRandom replaces the sweep dice. Intended for tests.
func (l *WindowLimiter) WithRandom(random func() float64) *WindowLimiter {
	l.random = random
	return l
}

// Check admits or rejects one request from principalID. A rejected request
// does not consume quota.
func (l *WindowLimiter) Check(principalID string) ports.RateDecision {
	now := l.now()
	if l.random() < l.sweepP {
		l.Sweep(now)
	}

	for {
		e := l.load(principalID)

		e.mu.Lock()
		if e.dead {
			// Swept between load and lock; start over on a fresh entry.
			e.mu.Unlock()
			continue
		}
		d := e.admit(now, l.max, l.window)
		e.mu.Unlock()
		return d
	}
}

func (e *entry) admit(now time.Time, limit int, window time.Duration) ports.RateDecision {
	if e.resetAt.IsZero() || now.After(e.resetAt) {
		e.count = 1
		e.resetAt = now.Add(window)
		return ports.RateDecision{Allowed: true, Count: 1}
	}

	e.count++
	if e.count > limit {
		e.count--
		return ports.RateDecision{
			Allowed:    false,
			Count:      e.count,
			RetryAfter: int(math.Ceil(e.resetAt.Sub(now).Seconds())),
		}
	}
	return ports.RateDecision{Allowed: true, Count: e.count}
}

func (l *WindowLimiter) load(principalID string) *entry {
	l.mu.RLock()
	e, ok := l.entries[principalID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[principalID]; !ok {
		e = &entry{}
		l.entries[principalID] = e
	}
	return e
}

// Sweep drops entries whose window ended before now and returns how many were
// removed.
func (l *WindowLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, e := range l.entries {
		// TryLock skips entries another goroutine is using right now.
		if !e.mu.TryLock() {
			continue
		}
		if !e.resetAt.IsZero() && now.After(e.resetAt) {
			e.dead = true
			delete(l.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Len reports how many principals are tracked.
func (l *WindowLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
