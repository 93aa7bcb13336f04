// Package dispatch performs one logical AI operation against the best
// available provider.
//
// Providers are tried strictly one at a time, in priority order, so a single
// operation never produces duplicate billable calls. A provider whose breaker
// is open is skipped without spending retry budget; a provider that fails
// after its retries has one failure recorded on its breaker and the next
// provider is tried.
//
//	d := dispatch.New(registry, retry.NewExecutor(log), log)
//	res, err := dispatch.Run(ctx, d, func(ctx context.Context, p provider.Config) (string, error) {
//	    return client.Transcribe(ctx, p.Name, audioURL)
//	})
package dispatch
