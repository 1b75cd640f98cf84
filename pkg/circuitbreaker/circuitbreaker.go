// Package circuitbreaker implements the Circuit Breaker pattern.
//
// In the progression core it guards the Redis-backed achievement-definition
// cache: when Redis misbehaves the breaker opens and reads fall through to
// Postgres directly instead of paying a timeout on every lookup.
// No external dependencies - uses only standard library.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed is the normal state - calls are allowed through.
	StateClosed State = iota
	// StateOpen is the failure state - calls are rejected immediately.
	StateOpen
	// StateHalfOpen allows a limited number of probe calls after the
	// open timeout to test whether the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit is open and calls are rejected.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies this breaker in logs.
	Name string

	// FailureThreshold is the number of consecutive failures before the
	// circuit opens. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in
	// half-open state before the circuit closes again. Default: 2
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before allowing a
	// probe. Default: 30s
	OpenTimeout time.Duration

	// IsFailure decides whether an error counts against the threshold.
	// If nil, every non-nil error counts.
	IsFailure func(error) bool

	// OnStateChange is called when the circuit transitions.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// Breaker is a circuit breaker protecting a single dependency.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time

	now func() time.Time
}

// New creates a Breaker from the given configuration.
func New(cfg Config) *Breaker {
	return &Breaker{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

// State returns the current state, applying the open-timeout transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// currentState must be called with the mutex held.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen)
	}
	return b.state
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// Do executes fn through the breaker. When the circuit is open it returns
// ErrCircuitOpen without invoking fn.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	b.mu.Lock()
	switch b.currentState() {
	case StateOpen:
		b.mu.Unlock()
		return ErrCircuitOpen
	case StateHalfOpen, StateClosed:
		b.mu.Unlock()
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) record(err error) {
	failed := err != nil
	if failed && b.cfg.IsFailure != nil {
		failed = b.cfg.IsFailure(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if failed {
		b.successes = 0
		b.failures++
		switch b.state {
		case StateHalfOpen:
			b.transition(StateOpen)
		case StateClosed:
			if b.failures >= b.cfg.FailureThreshold {
				b.transition(StateOpen)
			}
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}
