// Package circuitbreaker tracks the health of each AI provider.
//
// A breaker stops dispatches from reaching a provider after repeated failures
// and lets a single trial call through once its open timeout has elapsed:
//
//   - CLOSED: provider is attempted normally
//   - OPEN: provider is skipped
//   - HALF-OPEN: one trial call decides between CLOSED and OPEN
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(clock.Real{})
//	cb, _ := registry.Register("gemini", circuitbreaker.DefaultSettings())
//	if cb.Allow() {
//	    // Call the provider...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
package circuitbreaker
