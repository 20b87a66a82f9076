package observability

import (
	"testing"

	"github.com/smallbiznis/tally/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "production",
		Telemetry:   config.TelemetryConfig{OtelEnabled: true, SamplingRatio: 4},
	})

	if cfg.ServiceName != "tally" || cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.OtelEnabled {
		t.Fatalf("expected otel disabled without an endpoint")
	}
	if cfg.OtelSamplingRatio != 0.1 {
		t.Fatalf("expected out-of-range ratio to fall back, got %v", cfg.OtelSamplingRatio)
	}
	if cfg.Debug() {
		t.Fatalf("expected production info logging to be quiet")
	}
}

func TestDebug(t *testing.T) {
	if !(Config{LogLevel: "debug", Environment: "production"}).Debug() {
		t.Fatalf("expected debug level to enable debug")
	}
	if !(Config{LogLevel: "info", Environment: "Local"}).Debug() {
		t.Fatalf("expected local environment to enable debug")
	}
}
