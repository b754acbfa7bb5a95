package assistant

import (
	"errors"
	"sync"
	"time"
)

// ErrModelSuspended is returned by breaker.allow while a model sits out its
// cooldown after a run of failures. The fallback loop treats it like any
// other model failure and moves on to the next model in the chain.
var ErrModelSuspended = errors.New("model suspended after repeated failures")

// BreakerConfig tunes the per-model circuit breakers. Zero values pick the
// defaults.
type BreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that suspends a
	// model (default 5).
	FailureThreshold int

	// Cooldown is how long a suspended model sits out before trial calls are
	// let through again (default 30s).
	Cooldown time.Duration

	// TrialSuccesses is the run of successful trials that reinstates a
	// suspended model (default 2).
	TrialSuccesses int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.TrialSuccesses <= 0 {
		c.TrialSuccesses = 2
	}
	return c
}

// breaker tracks one model's recent health. A provider that keeps failing
// gets suspended so each turn skips straight to the fallbacks instead of
// burning an attempt (and the customer's time) on a dead model.
type breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	suspended   bool
	failures    int // consecutive failures while healthy
	trials      int // consecutive successes while suspended
	suspendedAt time.Time
}

func newBreaker(cfg BreakerConfig) *breaker {
	return &breaker{cfg: cfg.withDefaults()}
}

// allow reports whether the model may be called. Once the cooldown elapses,
// calls pass through as trials; their outcome decides reinstatement.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.suspended || time.Since(b.suspendedAt) >= b.cfg.Cooldown {
		return nil
	}
	return ErrModelSuspended
}

// success records a completed call. While suspended it counts toward
// reinstatement; while healthy it clears the failure run.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.suspended {
		b.failures = 0
		return
	}
	b.trials++
	if b.trials >= b.cfg.TrialSuccesses {
		b.suspended = false
		b.failures = 0
		b.trials = 0
	}
}

// failure records a failed call. A failed trial call restarts the cooldown.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.suspended {
		b.suspendedAt = time.Now()
		b.trials = 0
		return
	}
	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.suspended = true
		b.suspendedAt = time.Now()
		b.trials = 0
	}
}
