package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/clock"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

// Sleeper suspends the calling goroutine for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Operation is a single call to a provider.
type Operation[T any] func(ctx context.Context) (T, error)

// Executor runs provider calls with bounded exponential backoff.
type Executor struct {
	logger   *slog.Logger
	observer provider.Observer
	sleep    Sleeper
	clock    clock.Clock
}

type Option func(*Executor)

func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		e.sleep = s
	}
}

func WithObserver(o provider.Observer) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

func WithClock(c clock.Clock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

func NewExecutor(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger:   logger,
		observer: provider.NopObserver{},
		sleep:    clock.Sleep,
		clock:    clock.Real{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Do runs op at most cfg.MaxRetries times. A fatal error, or the error of the
// last permitted attempt, is returned unchanged. If ctx ends during a backoff
// wait, ctx.Err() is returned.
func Do[T any](ctx context.Context, e *Executor, cfg provider.Config, op Operation[T]) (T, error) {
	var zero T

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			e.record(ctx, cfg.Name, i, 0, provider.OutcomeSuccess, nil)
			return result, nil
		}

		if ctx.Err() != nil {
			e.record(ctx, cfg.Name, i, 0, provider.OutcomeCancelled, err)
			return zero, err
		}

		if !IsRetryable(err) {
			e.record(ctx, cfg.Name, i, 0, provider.OutcomeFatal, err)
			return zero, err
		}

		if i == attempts-1 {
			e.record(ctx, cfg.Name, i, 0, provider.OutcomeRetryable, err)
			return zero, err
		}

		delay := Backoff(i, cfg.BaseDelay, cfg.MaxDelay)
		e.record(ctx, cfg.Name, i, delay, provider.OutcomeRetryable, err)

		if err := e.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, nil
}

func (e *Executor) record(ctx context.Context, name string, index int, delay time.Duration, outcome provider.Outcome, err error) {
	attempt := provider.Attempt{
		DispatchID: provider.DispatchID(ctx),
		Provider:   name,
		Index:      index,
		Delay:      delay,
		Outcome:    outcome,
		Err:        err,
		At:         e.clock.Now(),
	}
	e.observer.Observe(attempt)

	attrs := []any{
		slog.String("dispatch_id", attempt.DispatchID),
		slog.String("provider", name),
		slog.Int("attempt", index+1),
		slog.Duration("delay", delay),
		slog.String("outcome", string(outcome)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	switch outcome {
	case provider.OutcomeSuccess:
		e.logger.Debug("Provider attempt succeeded", attrs...)
	case provider.OutcomeRetryable:
		e.logger.Warn("Provider attempt failed", attrs...)
	default:
		e.logger.Error("Provider attempt failed", attrs...)
	}
}
