// Package metrics collects per-provider dispatch metrics.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Provider attempts by outcome (success, retryable, fatal, cancelled)
//   - Breaker skips
//   - Total scheduled backoff per provider
//   - Circuit breaker state
//
// The collector runs in a dedicated goroutine and never blocks the dispatch
// path: Observe drops the event when the buffer is full. Counters are kept in
// an in-memory snapshot (served as JSON) and mirrored into a Prometheus
// registry (served in the text exposition format).
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, metrics.NewExporter(), logger)
//	go collector.Run(ctx)
//
//	executor := retry.NewExecutor(logger, retry.WithObserver(collector))
//
//	snapshot := collector.Snapshot()
package metrics
