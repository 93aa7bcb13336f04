// Package handler exposes the dispatcher over HTTP. It serves the provider
// table with live breaker state, runs simulated AI calls through the
// dispatcher and maps dispatch failures onto distinct JSON error codes.
package handler
