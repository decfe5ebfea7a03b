package httpclient

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting requests.
var ErrCircuitOpen = errors.New("circuit open")

// BreakerState is the current mode of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets all requests through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects all requests until the cooldown passes.
	BreakerOpen
	// BreakerHalfOpen lets a single probe request through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker. Zero fields get defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// breaker, 5 by default.
	MaxFailures int

	// Cooldown is how long the breaker stays open before letting a
	// probe through, 10s by default.
	Cooldown time.Duration
}

// Breaker fails fast once a backend looks down. After MaxFailures
// consecutive failures it opens and rejects requests for Cooldown,
// then admits one probe; a successful probe closes it, a failed one
// restarts the cooldown.
type Breaker struct {
	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	maxFailures int
	cooldown    time.Duration
}

// NewBreaker creates a Breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}
	return &Breaker{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Allow reports whether a request may proceed right now. In the
// half-open state only the first caller gets through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return true
	default:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
}

// Success records a completed request and closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	b.state = BreakerClosed
}

// Failure records a failed request. It opens the breaker after
// MaxFailures in a row, or immediately when a probe fails.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		b.probing = false
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
}
