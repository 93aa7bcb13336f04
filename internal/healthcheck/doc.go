// Package healthcheck watches provider circuit breakers. It publishes their
// states to the metrics pipeline on a fixed interval and logs transitions.
package healthcheck
