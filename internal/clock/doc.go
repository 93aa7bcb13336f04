// Package clock provides the injectable time source shared by the circuit
// breakers and the retry executor, plus a cancellable sleep used for backoff.
package clock
