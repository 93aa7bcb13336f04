package provider

import (
	"errors"
	"fmt"
	"sort"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/clock"
)

var (
	ErrDuplicateProvider = errors.New("duplicate provider name")
	ErrUnknownProvider   = errors.New("unknown provider")
)

// Registry holds the provider table and the breaker of every enabled
// provider. Disabled providers are kept for reporting but never get a breaker.
type Registry struct {
	configs  []Config
	ordered  []Config
	breakers *circuitbreaker.Registry
}

// Status pairs a provider's configuration with its breaker counters.
type Status struct {
	Config  Config                `json:"config"`
	Breaker *circuitbreaker.Stats `json:"breaker,omitempty"`
}

func NewRegistry(configs []Config, clk clock.Clock) (*Registry, error) {
	r := &Registry{
		configs:  make([]Config, 0, len(configs)),
		breakers: circuitbreaker.NewRegistry(clk),
	}

	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("provider %q: %w", cfg.Name, err)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, cfg.Name)
		}
		seen[cfg.Name] = true

		r.configs = append(r.configs, cfg)
		if !cfg.Enabled {
			continue
		}
		if _, err := r.breakers.Register(cfg.Name, cfg.BreakerSettings()); err != nil {
			return nil, err
		}
		r.ordered = append(r.ordered, cfg)
	}

	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority < r.ordered[j].Priority
	})

	return r, nil
}

// InPriorityOrder returns the enabled providers, lowest priority value first.
// The returned slice is a copy.
func (r *Registry) InPriorityOrder() []Config {
	out := make([]Config, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, cfg := range r.ordered {
		names[i] = cfg.Name
	}
	return names
}

// Enabled returns the number of dispatchable providers.
func (r *Registry) Enabled() int {
	return len(r.ordered)
}

// Breaker returns the breaker for an enabled provider.
func (r *Registry) Breaker(name string) (*circuitbreaker.CircuitBreaker, error) {
	cb, ok := r.breakers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return cb, nil
}

// ResetBreakers closes every breaker.
func (r *Registry) ResetBreakers() {
	r.breakers.Reset()
}

// Statuses reports every configured provider in registration order.
func (r *Registry) Statuses() []Status {
	stats := r.breakers.Stats()

	out := make([]Status, 0, len(r.configs))
	for _, cfg := range r.configs {
		status := Status{Config: cfg}
		if s, ok := stats[cfg.Name]; ok {
			status.Breaker = &s
		}
		out = append(out, status)
	}
	return out
}

// BreakerStats returns the breaker counters keyed by provider name.
func (r *Registry) BreakerStats() map[string]circuitbreaker.Stats {
	return r.breakers.Stats()
}
