package circuitbreaker

import (
	"fmt"
	"sync"

	"github.com/angeloszaimis/provider-dispatch/internal/clock"
)

// Registry owns one breaker per provider name for the life of the process.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
	clock    clock.Clock
}

func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real{}
	}

	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		clock:    clk,
	}
}

// Register creates the breaker for name. Registering a name twice is an error.
func (r *Registry) Register(name string, settings Settings) (*CircuitBreaker, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.breakers[name]; exists {
		return nil, fmt.Errorf("breaker %q already registered", name)
	}

	cb := NewCircuitBreaker(settings, r.clock)
	r.breakers[name] = cb
	return cb, nil
}

func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, exists := r.breakers[name]
	return cb, exists
}

// Reset closes every breaker. Breakers are reset in place, so callers
// holding one keep reporting into the live instance.
func (r *Registry) Reset() {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, cb := range r.breakers {
		cb.Reset()
	}
}

func (r *Registry) Stats() map[string]Stats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]Stats, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.Stats()
	}
	return stats
}
