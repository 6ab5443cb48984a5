package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"window-days":    "attribution.window_days",
	"half-life-days": "attribution.half_life_days",
	"workers":        "attribution.workers",
	"horizons":       "ltv.horizons",
	"postgres-dsn":   "postgres.dsn",
	"clickhouse-dsn": "clickhouse.dsn",
	"log-mode":       "log.mode",
	"metrics-addr":   "metrics.addr",
}

// RegisterFlags adds the shared configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to YAML config (default ./"+DefaultFile+" if present)")
	fs.Int("window-days", 0, "attribution lookback window in days")
	fs.Float64("half-life-days", 0, "time-decay half-life in days")
	fs.Int("workers", 0, "attribution worker count")
	fs.IntSlice("horizons", nil, "LTV horizons in days")
	fs.String("postgres-dsn", "", "PostgreSQL connection string")
	fs.String("clickhouse-dsn", "", "ClickHouse connection string")
	fs.String("sink", "", "derived table sink: memory, postgres or clickhouse")
	fs.String("log-mode", "", "log mode: dev or prod")
	fs.String("metrics-addr", "", "address to serve /metrics on")
	fs.String("output-dir", "", "report output directory")
	fs.String("data-dir", "", "CSV data directory")
}

// findConfigFile returns the explicit path, or DefaultFile when it exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Load builds a Config. Precedence (highest to lowest): explicitly set flags,
// LTV_ env vars, config file, defaults. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" && flags != nil {
		cfgFile, _ = flags.GetString("config")
	}
	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: LTV_ATTRIBUTION__WINDOW_DAYS -> attribution.window_days
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
