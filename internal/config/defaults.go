package config

import (
	"ltv-attribution-lab/internal/attribution"
	"ltv-attribution-lab/internal/domain"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "ltv.yaml"

// EnvPrefix prefixes environment overrides; "__" separates nested keys,
// e.g. LTV_ATTRIBUTION__WINDOW_DAYS.
const EnvPrefix = "LTV_"

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"attribution.window_days":    attribution.DefaultWindowDays,
		"attribution.half_life_days": attribution.DefaultHalfLifeDays,
		"attribution.workers":        1,
		"ltv.horizons":               append([]int(nil), domain.DefaultHorizons...),
		"postgres.dsn":               "",
		"clickhouse.dsn":             "",
		"sink":                       SinkMemory,
		"log.mode":                   "dev",
		"metrics.addr":               "",
		"output_dir":                 "reports",
		"data_dir":                   "data",
	}
}
