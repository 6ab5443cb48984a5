// Package config loads job configuration from defaults, a YAML file,
// LTV_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"

	"ltv-attribution-lab/internal/attribution"
	"ltv-attribution-lab/internal/ltv"
)

// Sink names accepted by Config.Sink.
const (
	SinkMemory     = "memory"
	SinkPostgres   = "postgres"
	SinkClickHouse = "clickhouse"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// AttributionConfig holds attribution engine parameters.
type AttributionConfig struct {
	WindowDays   int     `koanf:"window_days"`
	HalfLifeDays float64 `koanf:"half_life_days"`
	Workers      int     `koanf:"workers"`
}

// LTVConfig holds cohort LTV parameters.
type LTVConfig struct {
	Horizons []int `koanf:"horizons"`
}

// PostgresConfig holds the relational store connection.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// ClickHouseConfig holds the warehouse sink connection.
type ClickHouseConfig struct {
	DSN string `koanf:"dsn"`
}

// LogConfig selects the zap configuration.
type LogConfig struct {
	Mode string `koanf:"mode"`
}

// MetricsConfig controls the /metrics listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the full job configuration.
type Config struct {
	Attribution AttributionConfig `koanf:"attribution"`
	LTV         LTVConfig         `koanf:"ltv"`
	Postgres    PostgresConfig    `koanf:"postgres"`
	ClickHouse  ClickHouseConfig  `koanf:"clickhouse"`
	Sink        string            `koanf:"sink"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	OutputDir   string            `koanf:"output_dir"`
	DataDir     string            `koanf:"data_dir"`
}

// EngineConfig converts to the attribution engine configuration.
func (c *Config) EngineConfig() attribution.Config {
	return attribution.Config{
		WindowDays:   c.Attribution.WindowDays,
		HalfLifeDays: c.Attribution.HalfLifeDays,
		Workers:      c.Attribution.Workers,
	}
}

// LtvConfig converts to the LTV aggregator configuration.
func (c *Config) LtvConfig() ltv.Config {
	return ltv.Config{Horizons: append([]int(nil), c.LTV.Horizons...)}
}

// Validate checks parameter ranges and the sink name.
func (c *Config) Validate() error {
	if c.Attribution.WindowDays <= 0 {
		return fmt.Errorf("%w: attribution.window_days must be > 0, got %d", ErrInvalidConfig, c.Attribution.WindowDays)
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.LtvConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Sink {
	case SinkMemory:
	case SinkPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required for sink %q", ErrInvalidConfig, c.Sink)
		}
	case SinkClickHouse:
		if c.ClickHouse.DSN == "" {
			return fmt.Errorf("%w: clickhouse.dsn is required for sink %q", ErrInvalidConfig, c.Sink)
		}
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required as source for sink %q", ErrInvalidConfig, c.Sink)
		}
	default:
		return fmt.Errorf("%w: unknown sink %q", ErrInvalidConfig, c.Sink)
	}
	return nil
}
