// Package config loads the dispatch service configuration from a YAML file,
// a .env file and environment variables. It covers server settings, logging,
// the breaker monitor interval and the ordered table of AI providers with
// their retry and circuit breaker tuning.
package config
