package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoProvidersConfigured means no provider is enabled, typically because
// none of the credential variables are set.
var ErrNoProvidersConfigured = errors.New("no AI providers configured")

// Failure is the error a provider ended with during one dispatch.
type Failure struct {
	Provider string
	Err      error
}

// AllProvidersExhaustedError is returned when every enabled provider was
// either skipped by its breaker or failed.
type AllProvidersExhaustedError struct {
	DispatchID string
	Failures   []Failure
	Skipped    []string
}

func (e *AllProvidersExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString("all AI providers exhausted")

	if len(e.Failures) > 0 {
		parts := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			parts[i] = fmt.Sprintf("%s: %v", f.Provider, f.Err)
		}
		b.WriteString(" (failed: ")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	if len(e.Skipped) > 0 {
		b.WriteString(" (circuit open: ")
		b.WriteString(strings.Join(e.Skipped, ", "))
		b.WriteString(")")
	}

	return b.String()
}

func (e *AllProvidersExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Last returns the error of the last provider that was attempted, or nil if
// every provider was skipped.
func (e *AllProvidersExhaustedError) Last() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}
