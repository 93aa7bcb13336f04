package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/provider-dispatch/internal/provider"
	"github.com/angeloszaimis/provider-dispatch/internal/simulate"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	Environment string   `mapstructure:"environment"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type MonitorConfig struct {
	Interval string `mapstructure:"interval"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File enables a rotated log file next to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type SimulateConfig struct {
	FailTimes  int    `mapstructure:"fail_times"`
	AlwaysFail bool   `mapstructure:"always_fail"`
	Status     int    `mapstructure:"status"`
	Message    string `mapstructure:"message"`
	Latency    string `mapstructure:"latency"`
}

type ProviderConfig struct {
	Name    string `mapstructure:"name"`
	Enabled bool   `mapstructure:"enabled"`
	// CredentialEnv names the variable holding the provider's API key. When
	// set, the provider is only enabled if the variable is non-empty.
	CredentialEnv    string          `mapstructure:"credential_env"`
	MaxRetries       int             `mapstructure:"max_retries"`
	BaseDelay        string          `mapstructure:"base_delay"`
	MaxDelay         string          `mapstructure:"max_delay"`
	Priority         int             `mapstructure:"priority"`
	FailureThreshold int             `mapstructure:"failure_threshold"`
	OpenTimeout      string          `mapstructure:"open_timeout"`
	Simulate         *SimulateConfig `mapstructure:"simulate"`
}

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Monitor   MonitorConfig    `mapstructure:"monitor"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Providers []ProviderConfig `mapstructure:"providers"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

func defaultProviders() []map[string]any {
	return []map[string]any{
		{
			"name":              "gemini",
			"enabled":           true,
			"credential_env":    "GEMINI_API_KEY",
			"max_retries":       3,
			"base_delay":        "1s",
			"max_delay":         "15s",
			"priority":          1,
			"failure_threshold": 5,
			"open_timeout":      "60s",
		},
		{
			"name":              "anthropic",
			"enabled":           true,
			"credential_env":    "ANTHROPIC_API_KEY",
			"max_retries":       3,
			"base_delay":        "1s",
			"max_delay":         "15s",
			"priority":          2,
			"failure_threshold": 5,
			"open_timeout":      "60s",
		},
	}
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		return nil, err
	}

	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 10)
	v.SetDefault("providers", defaultProviders())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
					validation.Field(&lc.MaxSizeMB, validation.Min(0)),
					validation.Field(&lc.MaxBackups, validation.Min(0)),
				)
			}),
		),
		validation.Field(&c.Monitor,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MonitorConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MonitorConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Interval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Providers,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateProviderConfig)),
			validation.By(validateUniqueNames),
		),
	)
}

// ProviderConfigs converts the provider table, resolving each provider's
// enabled flag against its credential variable.
func (c *Config) ProviderConfigs() ([]provider.Config, error) {
	out := make([]provider.Config, 0, len(c.Providers))
	for _, p := range c.Providers {
		base, err := parseDuration(p.BaseDelay)
		if err != nil {
			return nil, err
		}
		maxDelay, err := parseDuration(p.MaxDelay)
		if err != nil {
			return nil, err
		}
		openTimeout, err := parseDuration(p.OpenTimeout)
		if err != nil {
			return nil, err
		}

		out = append(out, provider.Config{
			Name:             p.Name,
			Enabled:          p.IsEnabled(),
			MaxRetries:       p.MaxRetries,
			BaseDelay:        base,
			MaxDelay:         maxDelay,
			Priority:         p.Priority,
			FailureThreshold: p.FailureThreshold,
			OpenTimeout:      openTimeout,
		})
	}
	return out, nil
}

// IsEnabled reports whether the provider is switched on and, if it names a
// credential variable, whether that variable is set.
func (p ProviderConfig) IsEnabled() bool {
	if !p.Enabled {
		return false
	}
	if p.CredentialEnv == "" {
		return true
	}
	return os.Getenv(p.CredentialEnv) != ""
}

// Behaviors returns the simulated failure behavior of every provider.
func (c *Config) Behaviors() (map[string]simulate.Behavior, error) {
	out := make(map[string]simulate.Behavior, len(c.Providers))
	for _, p := range c.Providers {
		b := simulate.Behavior{}
		if p.Simulate != nil {
			latency, err := parseDuration(p.Simulate.Latency)
			if err != nil {
				return nil, err
			}
			b = simulate.Behavior{
				FailTimes:  p.Simulate.FailTimes,
				AlwaysFail: p.Simulate.AlwaysFail,
				Status:     p.Simulate.Status,
				Message:    p.Simulate.Message,
				Latency:    latency,
			}
		}
		out[p.Name] = b
	}
	return out, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}

	d, _ := time.ParseDuration(value.(string))
	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be a positive duration")
	}

	return nil
}

func validateOptionalDuration(value interface{}) error {
	if s, ok := value.(string); ok && s == "" {
		return nil
	}
	return validateDuration(value)
}

func validateProviderConfig(value interface{}) error {
	p, ok := value.(ProviderConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ProviderConfig")
	}

	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.MaxRetries, validation.Required, validation.Min(1)),
		validation.Field(&p.Priority, validation.Required, validation.Min(1)),
		validation.Field(&p.BaseDelay, validation.Required, validation.By(validateDuration)),
		validation.Field(&p.MaxDelay, validation.Required, validation.By(validateDuration)),
		validation.Field(&p.FailureThreshold, validation.Min(0)),
		validation.Field(&p.OpenTimeout, validation.By(validateOptionalDuration)),
	); err != nil {
		return err
	}

	base, _ := time.ParseDuration(p.BaseDelay)
	maxDelay, _ := time.ParseDuration(p.MaxDelay)
	if maxDelay < base {
		return validation.NewError("validation_invalid_max_delay", "max_delay must not be below base_delay")
	}

	if p.Simulate != nil {
		if err := validateOptionalDuration(p.Simulate.Latency); err != nil {
			return err
		}
		if p.Simulate.FailTimes < 0 {
			return validation.NewError("validation_invalid_fail_times", "fail_times must not be negative")
		}
	}

	return nil
}

func validateUniqueNames(value interface{}) error {
	providers, ok := value.([]ProviderConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a provider list")
	}

	seen := make(map[string]bool, len(providers))
	for _, p := range providers {
		if seen[p.Name] {
			return validation.NewError("validation_duplicate_provider", "provider names must be unique")
		}
		seen[p.Name] = true
	}
	return nil
}
