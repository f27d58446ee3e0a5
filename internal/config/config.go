// Package config provides configuration loading using koanf.
// Precedence, lowest first: compiled defaults, YAML config file, dotenv
// file, process environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/hubclock/internal/domain"
	"github.com/aelexs/hubclock/internal/hubtime"
)

// Environment variable naming. A double underscore separates nesting
// levels so single underscores can stay inside key names:
// HUBCLOCK_CLOCK__START_CYCLE -> clock.start_cycle.
const (
	EnvPrefix     = "HUBCLOCK_"
	EnvFileVar    = EnvPrefix + "ENV_FILE"
	ConfigFileVar = EnvPrefix + "CONFIG_FILE"

	defaultEnvFile = ".env"
	nestDelimiter  = "__"
)

// Config holds all process configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	Clock   ClockConfig   `koanf:"clock"`
	Display DisplayConfig `koanf:"display"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// ClockConfig holds the starting value and pacing of the live clock.
type ClockConfig struct {
	StartCycle   int     `koanf:"start_cycle"`
	StartElapsed int     `koanf:"start_elapsed"` // Tickules; overflow carries into the cycle
	Precision    int     `koanf:"precision"`
	Speed        float64 `koanf:"speed"` // Multiplier on real-time pacing
	Autostart    bool    `koanf:"autostart"`
}

// DisplayConfig holds console rendering options.
type DisplayConfig struct {
	Format string `koanf:"format"` // "text" or "json"
	Color  string `koanf:"color"`  // "auto", "always", "never"
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint       string              `koanf:"endpoint"` // Empty disables OTLP export
	AuthToken      domain.SecretString `koanf:"auth_token"` // Sent as a bearer token to the collector
	ServiceName    string              `koanf:"service_name"`
	SampleRatio    float64             `koanf:"sample_ratio"`
	ExportInterval time.Duration       `koanf:"export_interval"`
}

// Color modes for DisplayConfig.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Clock: ClockConfig{
			Precision: hubtime.DefaultPrecision,
			Speed:     domain.DefaultSpeed,
		},
		Display: DisplayConfig{
			Format: string(domain.DisplayFormatText),
			Color:  ColorAuto,
		},
		OTEL: OTELConfig{
			ServiceName: "hubclock",
			SampleRatio: 1,
		},
	}
}

type loadOptions struct {
	configFile string
	envFile    string
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithConfigFile reads a YAML config file. A missing file is an error.
func WithConfigFile(path string) LoadOption {
	return func(o *loadOptions) { o.configFile = path }
}

// WithEnvFile reads a dotenv file. A missing file is an error.
func WithEnvFile(path string) LoadOption {
	return func(o *loadOptions) { o.envFile = path }
}

// Load builds the configuration. Without options, the config file comes
// from HUBCLOCK_CONFIG_FILE (none if unset) and the dotenv file from
// HUBCLOCK_ENV_FILE, falling back to an optional ./.env.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{
		configFile: os.Getenv(ConfigFileVar),
		envFile:    os.Getenv(EnvFileVar),
	}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	cfg := defaults()

	if o.configFile != "" {
		if err := k.Load(file.Provider(o.configFile), yaml.Parser()); err != nil {
			return nil, fileError("config file", err)
		}
	}

	envFile, required := o.envFile, true
	if envFile == "" {
		envFile, required = defaultEnvFile, false
	}
	// Only HUBCLOCK_ keys are read, mapped like the environment.
	err := k.Load(file.Provider(envFile), dotenv.ParserEnv(EnvPrefix, ".", envKey))
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fileError("env file", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileError keeps a missing file distinguishable from one that does not parse.
func fileError(what string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, what, err)
}

// envKey maps HUBCLOCK_CLOCK__START_CYCLE to clock.start_cycle.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, nestDelimiter, ".")
}

// validate rejects values the clock cannot run with.
func validate(cfg *Config) error {
	c := cfg.Clock
	switch {
	case c.Precision < hubtime.MinPrecision || c.Precision > hubtime.MaxPrecision:
		return fmt.Errorf("%w: clock.precision %d outside [%d,%d]",
			domain.ErrInvalidConfig, c.Precision, hubtime.MinPrecision, hubtime.MaxPrecision)
	case c.Speed <= 0 || c.Speed > domain.MaxSpeed:
		return fmt.Errorf("%w: clock.speed %g outside (0,%g]", domain.ErrInvalidConfig, c.Speed, domain.MaxSpeed)
	case c.StartCycle < 0:
		return fmt.Errorf("%w: clock.start_cycle is negative", domain.ErrInvalidConfig)
	case c.StartElapsed < 0:
		return fmt.Errorf("%w: clock.start_elapsed is negative", domain.ErrInvalidConfig)
	}

	if !domain.IsValidDisplayFormat(domain.DisplayFormat(cfg.Display.Format)) {
		return fmt.Errorf("%w: display.format %q", domain.ErrInvalidConfig, cfg.Display.Format)
	}
	switch cfg.Display.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: display.color %q", domain.ErrInvalidConfig, cfg.Display.Color)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log_format %q", domain.ErrInvalidConfig, cfg.LogFormat)
	}
	if !cfg.OTEL.AuthToken.IsEmpty() && cfg.OTEL.Endpoint == "" {
		return fmt.Errorf("%w: otel.auth_token set without otel.endpoint", domain.ErrInvalidConfig)
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return fmt.Errorf("%w: otel.sample_ratio %g outside [0,1]", domain.ErrInvalidConfig, cfg.OTEL.SampleRatio)
	}

	return nil
}

// InitialTime builds the clock value the process starts from.
func (c *Config) InitialTime() hubtime.Time {
	t := hubtime.New()
	t.SetPrecision(c.Clock.Precision)
	t.SetCycle(c.Clock.StartCycle)
	t.SetTotalElapsed(c.Clock.StartElapsed)
	return t
}

// OTLPHeaders returns the exporter headers, or nil without an auth token.
func (c *Config) OTLPHeaders() map[string]string {
	if c.OTEL.AuthToken.IsEmpty() {
		return nil
	}
	return map[string]string{"authorization": "Bearer " + c.OTEL.AuthToken.Expose()}
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
