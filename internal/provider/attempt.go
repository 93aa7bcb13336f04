package provider

import "time"

type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetryable Outcome = "retryable_failure"
	OutcomeFatal     Outcome = "fatal_failure"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCancelled Outcome = "cancelled"
)

// Attempt is one provider call (or skip) inside a dispatch. It is emitted for
// observability only and never stored.
type Attempt struct {
	DispatchID string
	Provider   string
	// Index is the 0-based attempt number within the provider's retry budget.
	Index   int
	Delay   time.Duration
	Outcome Outcome
	Err     error
	At      time.Time
}

// Observer receives attempt events. Implementations must not block.
type Observer interface {
	Observe(Attempt)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Attempt)

func (f ObserverFunc) Observe(a Attempt) {
	f(a)
}

// NopObserver discards events.
type NopObserver struct{}

func (NopObserver) Observe(Attempt) {}
