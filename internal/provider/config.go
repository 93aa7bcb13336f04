package provider

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
)

// Config describes one AI provider. Values are fixed at startup.
type Config struct {
	Name       string
	Enabled    bool
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Priority orders providers ascending; equal values keep registration order.
	Priority int

	FailureThreshold int
	OpenTimeout      time.Duration
}

// BreakerSettings returns the breaker tuning for this provider, defaulting
// unset values.
func (c Config) BreakerSettings() circuitbreaker.Settings {
	settings := circuitbreaker.DefaultSettings()
	if c.FailureThreshold > 0 {
		settings.FailureThreshold = c.FailureThreshold
	}
	if c.OpenTimeout > 0 {
		settings.OpenTimeout = c.OpenTimeout
	}
	return settings
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.MaxRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.Priority, validation.Required, validation.Min(1)),
		validation.Field(&c.BaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay,
			validation.When(c.BaseDelay > 0, validation.Required),
			validation.Min(c.BaseDelay),
		),
		validation.Field(&c.FailureThreshold, validation.Min(0)),
		validation.Field(&c.OpenTimeout, validation.Min(time.Duration(0))),
	)
}
