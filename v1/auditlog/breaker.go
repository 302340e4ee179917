package auditlog

import (
	"sync"
	"time"
)

// breaker gates database persistence after repeated connection failures.
//
// Once failures reaches threshold the breaker pauses until pauseUntil. The
// first check at or after pauseUntil clears the pause and resets failures,
// whether or not the next write succeeds.
type breaker struct {
	mu         sync.Mutex
	enabled    bool
	failures   int
	paused     bool
	pauseUntil time.Time

	threshold int
	window    time.Duration
	now       func() time.Time
}

func newBreaker(threshold int, window time.Duration, now func() time.Time) *breaker {
	return &breaker{threshold: threshold, window: window, now: now}
}

func (b *breaker) enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
}

// allow reports whether a write may be attempted now.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled {
		return false
	}
	now := b.now()
	if b.paused {
		if now.Before(b.pauseUntil) {
			return false
		}
		b.paused = false
		b.failures = 0
	}
	if b.failures >= b.threshold {
		b.trip(now)
		return false
	}
	return true
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// failure counts a connection failure and reports whether it tripped the breaker.
func (b *breaker) failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.threshold && !b.paused {
		b.trip(b.now())
		return true
	}
	return false
}

// trip must be called with mu held.
func (b *breaker) trip(now time.Time) {
	b.paused = true
	b.pauseUntil = now.Add(b.window)
}

// BreakerState is a point-in-time copy of the breaker.
type BreakerState struct {
	Enabled             bool
	ConsecutiveFailures int
	Paused              bool
	PauseUntil          time.Time
}

func (b *breaker) snapshot() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerState{
		Enabled:             b.enabled,
		ConsecutiveFailures: b.failures,
		Paused:              b.paused,
		PauseUntil:          b.pauseUntil,
	}
}
