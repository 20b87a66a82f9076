package observability

import (
	"strings"

	"github.com/smallbiznis/tally/internal/config"
)

// Config is the slice of application config the telemetry stack reads.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	t := cfg.Telemetry
	ratio := t.SamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	return Config{
		ServiceName:          orDefault(cfg.AppName, "tally"),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             orDefault(t.LogLevel, "info"),
		LogFormat:            orDefault(t.LogFormat, "json"),
		OtelEnabled:          t.OtelEnabled && strings.TrimSpace(cfg.OTLPEndpoint) != "",
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: orDefault(t.OtelProtocol, "grpc"),
		OtelSamplingRatio:    ratio,
	}
}

// Debug switches request logging to verbose mode.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func orDefault(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return strings.ToLower(v)
	}
	return def
}
