package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/angeloszaimis/provider-dispatch/internal/clock"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
	"github.com/angeloszaimis/provider-dispatch/internal/retry"
)

// Operation performs the AI call against one provider.
type Operation[T any] func(ctx context.Context, p provider.Config) (T, error)

// Result is a successful dispatch.
type Result[T any] struct {
	Value      T
	Provider   string
	DispatchID string
}

// Dispatcher tries providers one at a time in priority order until one
// succeeds. Concurrent dispatches share only the registry's breakers.
type Dispatcher struct {
	registry *provider.Registry
	executor *retry.Executor
	logger   *slog.Logger
	observer provider.Observer
	clock    clock.Clock
	newID    func() string
}

type Option func(*Dispatcher)

func WithObserver(o provider.Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithIDGenerator replaces the uuid dispatch IDs.
func WithIDGenerator(f func() string) Option {
	return func(d *Dispatcher) {
		d.newID = f
	}
}

func New(registry *provider.Registry, executor *retry.Executor, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		executor: executor,
		logger:   logger,
		observer: provider.NopObserver{},
		clock:    clock.Real{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

func (d *Dispatcher) Registry() *provider.Registry {
	return d.registry
}

// Run dispatches op. It returns ErrNoProvidersConfigured when nothing is
// enabled, *AllProvidersExhaustedError when every provider was skipped or
// failed, and a wrapped context error when ctx ends first. A cancelled
// dispatch records neither success nor failure; a half-open trial it held is
// handed back to the open state.
func Run[T any](ctx context.Context, d *Dispatcher, op Operation[T]) (Result[T], error) {
	id := d.newID()
	ctx = provider.WithDispatchID(ctx, id)
	log := d.logger.With(slog.String("dispatch_id", id))

	providers := d.registry.InPriorityOrder()
	if len(providers) == 0 {
		log.Error("No AI providers configured")
		return Result[T]{DispatchID: id}, ErrNoProvidersConfigured
	}

	exhausted := &AllProvidersExhaustedError{DispatchID: id}

	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			log.Warn("Dispatch cancelled", slog.String("next_provider", p.Name), slog.Any("err", err))
			return Result[T]{DispatchID: id}, fmt.Errorf("dispatch %s: %w", id, err)
		}

		cb, err := d.registry.Breaker(p.Name)
		if err != nil {
			exhausted.Failures = append(exhausted.Failures, Failure{Provider: p.Name, Err: err})
			continue
		}

		if !cb.Allow() {
			log.Warn("Skipping provider, circuit open", slog.String("provider", p.Name))
			d.observer.Observe(provider.Attempt{
				DispatchID: id,
				Provider:   p.Name,
				Outcome:    provider.OutcomeSkipped,
				At:         d.clock.Now(),
			})
			exhausted.Skipped = append(exhausted.Skipped, p.Name)
			continue
		}

		value, err := retry.Do(ctx, d.executor, p, func(ctx context.Context) (T, error) {
			return op(ctx, p)
		})
		if err == nil {
			cb.RecordSuccess()
			log.Info("Dispatch succeeded", slog.String("provider", p.Name))
			return Result[T]{Value: value, Provider: p.Name, DispatchID: id}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			cb.ReleaseTrial()
			log.Warn("Dispatch cancelled", slog.String("provider", p.Name), slog.Any("err", err))
			return Result[T]{DispatchID: id}, fmt.Errorf("dispatch %s: %w", id, ctxErr)
		}

		cb.RecordFailure()
		exhausted.Failures = append(exhausted.Failures, Failure{Provider: p.Name, Err: err})
		log.Warn("Provider failed, falling back",
			slog.String("provider", p.Name),
			slog.String("breaker", cb.State().String()),
			slog.Any("err", err))
	}

	log.Error("All AI providers exhausted",
		slog.Int("failed", len(exhausted.Failures)),
		slog.Int("skipped", len(exhausted.Skipped)))
	return Result[T]{DispatchID: id}, exhausted
}
