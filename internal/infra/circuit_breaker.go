package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// BreakerState is where a CircuitBreaker sits in closed → open → half-open.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // calls pass through
	BreakerOpen                         // calls fail fast
	BreakerHalfOpen                     // a single trial call is let through
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

// ErrCircuitOpen is returned without calling through while the breaker is
// open, or while a half-open trial call is already in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes a CircuitBreaker. Zero values take the defaults.
type BreakerConfig struct {
	FailureThreshold int           // consecutive faults that open the circuit (5)
	SuccessThreshold int           // half-open successes that close it (2)
	Cooldown         time.Duration // time spent open before probing (60s)
	// IsFault decides whether an error counts against the circuit. Nil
	// counts every error except the caller's own context cancellation.
	IsFault func(error) bool
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 60 * time.Second
	}
	if c.IsFault == nil {
		c.IsFault = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	return c
}

// BreakerSnapshot is a point-in-time view for health checks.
type BreakerSnapshot struct {
	State     BreakerState `json:"-"`
	StateName string       `json:"state"`
	Faults    int          `json:"consecutive_faults"`
	OpenedAt  *time.Time   `json:"opened_at,omitempty"`
}

// CircuitBreaker guards calls to an unreliable dependency, here the card
// terminal sidecar, so an outage fails fast at the register.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu        sync.Mutex
	state     BreakerState
	faults    int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
}

// State reports the current state, moving open → half-open once the
// cooldown has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	s := BreakerSnapshot{State: cb.state, StateName: cb.state.String(), Faults: cb.faults}
	if cb.state != BreakerClosed {
		t := cb.openedAt
		s.OpenedAt = &t
	}
	return s
}

// Do runs fn unless the circuit is open. Errors that IsFault rejects are
// returned to the caller without touching the breaker.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.record(err, trial)
	return err
}

func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	switch cb.state {
	case BreakerOpen:
		return false, ErrCircuitOpen
	case BreakerHalfOpen:
		if cb.probing {
			return false, ErrCircuitOpen
		}
		cb.probing = true
		return true, nil
	default:
		return false, nil
	}
}

func (cb *CircuitBreaker) record(err error, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if trial {
		cb.probing = false
	}

	if err != nil && cb.cfg.IsFault(err) {
		cb.faults++
		if cb.state == BreakerHalfOpen || cb.faults >= cb.cfg.FailureThreshold {
			cb.trip()
		}
		return
	}

	switch cb.state {
	case BreakerClosed:
		cb.faults = 0
	case BreakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.moveTo(BreakerClosed)
			cb.faults, cb.successes = 0, 0
		}
	}
}

// refresh must be called under lock.
func (cb *CircuitBreaker) refresh() {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		cb.moveTo(BreakerHalfOpen)
		cb.successes = 0
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.successes = 0
	cb.moveTo(BreakerOpen)
}

func (cb *CircuitBreaker) moveTo(to BreakerState) {
	if cb.state == to {
		return
	}
	ev := log.Info()
	if to == BreakerOpen {
		ev = log.Warn().Int("faults", cb.faults)
	}
	ev.Str("breaker", cb.name).Str("from", cb.state.String()).Str("to", to.String()).Msg("circuit breaker state change")
	cb.state = to
}
