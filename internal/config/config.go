// Package config builds the process configuration once at startup. Core
// components receive their settings by injection and never read the
// environment themselves.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/perflens/perflens/internal/analyzer"
)

// Config holds all process-level settings.
type Config struct {
	Host   string
	Port   string
	DBPath string

	SlowThresholdMs    float64
	ErrorRateThreshold float64

	// AdviceProvider is the catalog id of the advice backend, empty to
	// disable advice generation.
	AdviceProvider string
}

// FromEnv reads configuration from the environment, applying defaults for
// anything unset.
func FromEnv() *Config {
	cfg := &Config{
		Host:               envOr("HOST", "127.0.0.1"),
		Port:               os.Getenv("PORT"),
		DBPath:             envOr("PERFLENS_DB_PATH", "perflens.db"),
		SlowThresholdMs:    envFloat("PERFLENS_SLOW_THRESHOLD_MS", analyzer.DefaultSlowThresholdMs),
		ErrorRateThreshold: envFloat("PERFLENS_ERROR_RATE_THRESHOLD", analyzer.DefaultErrorRateThreshold),
		AdviceProvider:     strings.TrimSpace(os.Getenv("PERFLENS_ADVICE_PROVIDER")),
	}

	if cfg.Port == "" {
		if os.Getenv("PERFLENS_MODE") == "release" {
			cfg.Port = "8086"
		} else {
			cfg.Port = "8080"
		}
	}

	return cfg
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
