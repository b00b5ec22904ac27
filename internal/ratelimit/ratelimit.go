// Package ratelimit implements a per-client, in-memory sliding-window rate
// limiter for form submissions.
//
// Every client keeps a single 24h history of submission timestamps; the
// minute, hour, and day windows are all evaluated against that one history.
// This is strictly a single-process limiter with no cross-instance
// coordination, which is acceptable for a single deployed instance.
package ratelimit

import (
	"sync"
	"time"
)

// Window names used in check results and violations.
const (
	WindowMinute = "minute"
	WindowHour   = "hour"
	WindowDay    = "day"
)

const historyRetention = 24 * time.Hour

// Config holds the per-window submission limits and the sweep interval.
type Config struct {
	MinuteLimit   int
	HourLimit     int
	DayLimit      int
	SweepInterval time.Duration
}

// DefaultConfig returns the standard contact-form limits.
func DefaultConfig() Config {
	return Config{
		MinuteLimit:   5,
		HourLimit:     20,
		DayLimit:      100,
		SweepInterval: 15 * time.Minute,
	}
}

// Violation reports one breached window.
type Violation struct {
	Window string `json:"window"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
}

// CheckResult is the outcome of a read-only rate check. Allowed is true iff
// Violations is empty; every breached window is reported, not just the first.
type CheckResult struct {
	Allowed    bool           `json:"allowed"`
	Violations []Violation    `json:"violations,omitempty"`
	Counts     map[string]int `json:"counts"`
}

type window struct {
	name     string
	duration time.Duration
	limit    int
}

// Limiter tracks submission timestamps per client identity. All access to
// the history map goes through a single mutex; callers must not hold the
// limiter during a blocking delivery call.
type Limiter struct {
	mu        sync.Mutex
	windows   []window
	history   map[string][]time.Time
	lastSweep time.Time
	sweep     time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a limiter with the given limits. Zero or negative limits fall
// back to the defaults.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.MinuteLimit <= 0 {
		cfg.MinuteLimit = def.MinuteLimit
	}
	if cfg.HourLimit <= 0 {
		cfg.HourLimit = def.HourLimit
	}
	if cfg.DayLimit <= 0 {
		cfg.DayLimit = def.DayLimit
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}

	l := &Limiter{
		windows: []window{
			{WindowMinute, time.Minute, cfg.MinuteLimit},
			{WindowHour, time.Hour, cfg.HourLimit},
			{WindowDay, historyRetention, cfg.DayLimit},
		},
		history: make(map[string][]time.Time),
		sweep:   cfg.SweepInterval,
		now:     time.Now,
	}
	l.lastSweep = l.now()
	return l
}

// Check evaluates every window for the client without recording anything.
// A window is violated when its current count has reached its limit.
//
// Check and Record are not atomic as a pair: two concurrent requests from
// the same client can both pass Check before either records. The original
// service behaved the same way and the minor over-admission under burst
// concurrency is accepted; see TestCheckRecordGap.
func (l *Limiter) Check(clientID string) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	result := CheckResult{
		Allowed: true,
		Counts:  make(map[string]int, len(l.windows)),
	}

	timestamps := l.history[clientID]
	for _, w := range l.windows {
		start := now.Add(-w.duration)
		count := 0
		for _, t := range timestamps {
			if t.After(start) {
				count++
			}
		}
		result.Counts[w.name] = count
		if count >= w.limit {
			result.Allowed = false
			result.Violations = append(result.Violations, Violation{
				Window: w.name,
				Count:  count,
				Limit:  w.limit,
			})
		}
	}

	return result
}

// Record appends the current time to the client's history. Call it only
// after the admission decision is final.
func (l *Limiter) Record(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)
	l.history[clientID] = append(l.history[clientID], now)
}

// ClientCount returns the number of clients with recorded history.
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// maybeSweep purges timestamps older than the retention horizon and evicts
// clients left with empty history. It runs at most once per sweep interval,
// lazily from Check and Record. Caller holds l.mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.sweep {
		return
	}
	l.lastSweep = now

	horizon := now.Add(-historyRetention)
	for clientID, timestamps := range l.history {
		kept := timestamps[:0]
		for _, t := range timestamps {
			if t.After(horizon) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(l.history, clientID)
		} else {
			l.history[clientID] = kept
		}
	}
}
