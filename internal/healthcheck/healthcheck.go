package healthcheck

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
)

// DefaultInterval is used when a monitor is built with a non-positive interval.
const DefaultInterval = 5 * time.Second

// BreakerSource exposes the current breaker counters by provider.
type BreakerSource interface {
	BreakerStats() map[string]circuitbreaker.Stats
}

// StateSink receives breaker states, e.g. the metrics collector.
type StateSink interface {
	ObserveBreaker(name string, state circuitbreaker.State)
}

// Monitor periodically publishes provider breaker states and logs every
// transition it sees between polls.
type Monitor struct {
	source   BreakerSource
	sink     StateSink
	interval time.Duration
	logger   *slog.Logger
	last     map[string]circuitbreaker.State
}

func NewMonitor(source BreakerSource, sink StateSink, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Monitor{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   logger,
		last:     make(map[string]circuitbreaker.State),
	}
}

// Run polls until ctx is done. It is not safe to call Run and Check
// concurrently.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Breaker monitor stopped")
			return nil

		case <-ticker.C:
			m.Check()
		}
	}
}

// Check runs a single poll.
func (m *Monitor) Check() {
	stats := m.source.BreakerStats()

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := stats[name]
		if m.sink != nil {
			m.sink.ObserveBreaker(name, s.State)
		}

		prev, seen := m.last[name]
		m.last[name] = s.State
		if !seen || prev == s.State {
			continue
		}

		attrs := []any{
			slog.String("provider", name),
			slog.String("from", prev.String()),
			slog.String("to", s.State.String()),
			slog.Int("consecutive_failures", s.Failures),
		}
		if s.State == circuitbreaker.StateClosed {
			m.logger.Info("Provider is back up", attrs...)
		} else {
			m.logger.Warn("Provider breaker changed state", attrs...)
		}
	}
}
