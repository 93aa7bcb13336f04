// Package provider defines the AI provider table, the registry that orders
// providers by priority and owns their circuit breakers, and the attempt
// events emitted while dispatching.
package provider
