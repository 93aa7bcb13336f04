package metrics

import (
	"sync"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

type Metrics struct {
	mutex     sync.RWMutex
	outcomes  map[string]map[provider.Outcome]int64
	backoff   map[string]time.Duration
	breakers  map[string]circuitbreaker.State
	lastError map[string]string
	startTime time.Time
}

type Snapshot struct {
	TotalAttempts int64                      `json:"total_attempts"`
	Uptime        time.Duration              `json:"uptime"`
	Providers     map[string]ProviderMetrics `json:"providers"`
}

type ProviderMetrics struct {
	Attempts          int64         `json:"attempts"`
	Successes         int64         `json:"successes"`
	RetryableFailures int64         `json:"retryable_failures"`
	FatalFailures     int64         `json:"fatal_failures"`
	Cancelled         int64         `json:"cancelled"`
	Skips             int64         `json:"skips"`
	TotalBackoff      time.Duration `json:"total_backoff"`
	Breaker           string        `json:"breaker,omitempty"`
	LastError         string        `json:"last_error,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		outcomes:  make(map[string]map[provider.Outcome]int64),
		backoff:   make(map[string]time.Duration),
		breakers:  make(map[string]circuitbreaker.State),
		lastError: make(map[string]string),
		startTime: time.Now(),
	}
}

func (m *Metrics) RecordAttempt(a provider.Attempt) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.outcomes[a.Provider] == nil {
		m.outcomes[a.Provider] = make(map[provider.Outcome]int64)
	}
	m.outcomes[a.Provider][a.Outcome]++
	m.backoff[a.Provider] += a.Delay

	if a.Err != nil {
		m.lastError[a.Provider] = a.Err.Error()
	}
}

func (m *Metrics) UpdateBreakerState(name string, state circuitbreaker.State) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakers[name] = state
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:    time.Since(m.startTime),
		Providers: make(map[string]ProviderMetrics),
	}

	names := make(map[string]bool)
	for name := range m.outcomes {
		names[name] = true
	}
	for name := range m.breakers {
		names[name] = true
	}

	for name := range names {
		outcomes := m.outcomes[name]
		pm := ProviderMetrics{
			Successes:         outcomes[provider.OutcomeSuccess],
			RetryableFailures: outcomes[provider.OutcomeRetryable],
			FatalFailures:     outcomes[provider.OutcomeFatal],
			Cancelled:         outcomes[provider.OutcomeCancelled],
			Skips:             outcomes[provider.OutcomeSkipped],
			TotalBackoff:      m.backoff[name],
			LastError:         m.lastError[name],
		}
		// Skips are not calls.
		pm.Attempts = pm.Successes + pm.RetryableFailures + pm.FatalFailures + pm.Cancelled

		if state, ok := m.breakers[name]; ok {
			pm.Breaker = state.String()
		}

		snap.TotalAttempts += pm.Attempts
		snap.Providers[name] = pm
	}

	return snap
}
