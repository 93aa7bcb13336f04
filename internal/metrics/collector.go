package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

type EventType string

const (
	EventAttempt      EventType = "attempt"
	EventBreakerState EventType = "breaker_state"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Attempt   provider.Attempt
	Provider  string
	State     circuitbreaker.State
}

// Collector receives events on a buffered channel and applies them on its
// own goroutine, so observers on the dispatch path never block.
type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	exporter *Exporter
	logger   *slog.Logger
}

func NewCollector(bufferSize int, exporter *Exporter, logger *slog.Logger) *Collector {
	if exporter == nil {
		exporter = NewExporter()
	}

	return &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		exporter: exporter,
		logger:   logger,
	}
}

// Observe implements provider.Observer. Events are dropped when the buffer
// is full.
func (c *Collector) Observe(a provider.Attempt) {
	c.emit(MetricEvent{
		Type:      EventAttempt,
		Timestamp: a.At,
		Attempt:   a,
		Provider:  a.Provider,
	})
}

func (c *Collector) ObserveBreaker(name string, state circuitbreaker.State) {
	c.emit(MetricEvent{
		Type:      EventBreakerState,
		Timestamp: time.Now(),
		Provider:  name,
		State:     state,
	})
}

func (c *Collector) emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event",
			slog.String("type", string(event.Type)),
			slog.String("provider", event.Provider))
	}
}

// Run processes events until ctx is done, then drains what is buffered.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return nil
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventAttempt:
		c.metrics.RecordAttempt(event.Attempt)
		c.exporter.recordAttempt(event.Attempt)

	case EventBreakerState:
		c.metrics.UpdateBreakerState(event.Provider, event.State)
		c.exporter.recordBreakerState(event.Provider, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func (c *Collector) Exporter() *Exporter {
	return c.exporter
}
