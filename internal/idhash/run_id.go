package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ComputeParamsHash computes a deterministic hash of the model parameters.
// Formula: SHA256(window_days|half_life_days|h1,h2,...)
// Horizons are hashed in the given order.
// Returns hex-encoded hash (64 characters).
func ComputeParamsHash(windowDays int, halfLifeDays float64, horizons []int) string {
	hs := make([]string, len(horizons))
	for i, h := range horizons {
		hs[i] = strconv.Itoa(h)
	}

	data := fmt.Sprintf("%d|%s|%s",
		windowDays,
		strconv.FormatFloat(halfLifeDays, 'g', -1, 64),
		strings.Join(hs, ","),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(started_at_unix_ms|params_hash)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(startedAtMs int64, paramsHash string) string {
	data := fmt.Sprintf("%d|%s", startedAtMs, paramsHash)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
