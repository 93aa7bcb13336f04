// Package retry runs a single provider call with bounded exponential backoff.
//
// Errors are split into retryable and fatal by IsRetryable, the only place the
// classification rules live. Backoff waits are cancellable timers, so a
// waiting dispatch never holds up other goroutines.
package retry
