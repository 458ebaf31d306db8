package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("HOST", "")
	t.Setenv("PORT", "")
	t.Setenv("PERFLENS_MODE", "")
	t.Setenv("PERFLENS_DB_PATH", "")
	t.Setenv("PERFLENS_SLOW_THRESHOLD_MS", "")
	t.Setenv("PERFLENS_ERROR_RATE_THRESHOLD", "")

	cfg := FromEnv()
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr = %q, want 127.0.0.1:8080", cfg.Addr())
	}
	if cfg.DBPath != "perflens.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.SlowThresholdMs != 500 || cfg.ErrorRateThreshold != 0.05 {
		t.Errorf("thresholds = %v/%v, want 500/0.05", cfg.SlowThresholdMs, cfg.ErrorRateThreshold)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "9000")
	t.Setenv("PERFLENS_SLOW_THRESHOLD_MS", "250")
	t.Setenv("PERFLENS_ERROR_RATE_THRESHOLD", "0.1")
	t.Setenv("PERFLENS_ADVICE_PROVIDER", "anthropic")

	cfg := FromEnv()
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Errorf("addr = %q", cfg.Addr())
	}
	if cfg.SlowThresholdMs != 250 || cfg.ErrorRateThreshold != 0.1 {
		t.Errorf("thresholds = %v/%v", cfg.SlowThresholdMs, cfg.ErrorRateThreshold)
	}
	if cfg.AdviceProvider != "anthropic" {
		t.Errorf("advice provider = %q", cfg.AdviceProvider)
	}
}

func TestFromEnvReleaseModePort(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PERFLENS_MODE", "release")

	if cfg := FromEnv(); cfg.Port != "8086" {
		t.Errorf("release port = %q, want 8086", cfg.Port)
	}
}

func TestFromEnvBadFloatFallsBack(t *testing.T) {
	t.Setenv("PERFLENS_SLOW_THRESHOLD_MS", "not-a-number")

	if cfg := FromEnv(); cfg.SlowThresholdMs != 500 {
		t.Errorf("threshold = %v, want default 500", cfg.SlowThresholdMs)
	}
}
