package circuitbreaker

import (
	"sync"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/clock"
)

type State int

const (
	StateClosed   State = iota // Provider may be called
	StateOpen                  // Provider is skipped
	StateHalfOpen              // One trial call permitted
)

const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 60 * time.Second
)

// Settings tune a single breaker.
type Settings struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// DefaultSettings returns the 5 failure / 60s tuning.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: DefaultFailureThreshold,
		OpenTimeout:      DefaultOpenTimeout,
	}
}

// Stats is a point-in-time copy of a breaker's counters.
type Stats struct {
	State         State     `json:"state"`
	Failures      int       `json:"consecutive_failures"`
	TotalFailures int64     `json:"total_failures"`
	Successes     int64     `json:"total_successes"`
	LastFailure   time.Time `json:"last_failure,omitempty"`
}

type CircuitBreaker struct {
	mutex            sync.Mutex
	state            State
	failures         int
	totalFailures    int64
	successes        int64
	lastFailure      time.Time
	failureThreshold int
	openTimeout      time.Duration
	clock            clock.Clock
}

// NewCircuitBreaker builds a closed breaker. Non-positive settings fall back
// to the defaults and a nil clock means the wall clock.
func NewCircuitBreaker(settings Settings, clk clock.Clock) *CircuitBreaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = DefaultFailureThreshold
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultOpenTimeout
	}
	if clk == nil {
		clk = clock.Real{}
	}

	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: settings.FailureThreshold,
		openTimeout:      settings.OpenTimeout,
		clock:            clk,
	}
}

// Allow reports whether the provider may be attempted now. An open breaker
// whose timeout has strictly elapsed moves to half-open on this call.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.clock.Now().Sub(cb.lastFailure) > cb.openTimeout {
			cb.state = StateHalfOpen
			return true
		}

		return false
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.totalFailures++
	cb.lastFailure = cb.clock.Now()

	if cb.state == StateHalfOpen {
		cb.state = StateOpen
	}

	if cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures = 0
	cb.successes++
	cb.state = StateClosed
}

// ReleaseTrial returns a half-open breaker to open without recording a
// failure. The open timeout has already elapsed, so the next Allow grants a
// fresh trial.
func (cb *CircuitBreaker) ReleaseTrial() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateHalfOpen {
		cb.state = StateOpen
	}
}

// Reset closes the breaker and clears its counters in place.
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.totalFailures = 0
	cb.successes = 0
	cb.lastFailure = time.Time{}
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return Stats{
		State:         cb.state,
		Failures:      cb.failures,
		TotalFailures: cb.totalFailures,
		Successes:     cb.successes,
		LastFailure:   cb.lastFailure,
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
