package observability

import (
	"strings"

	"github.com/srithedesigner/credmatrix-backend/internal/config"
)

// Config is the telemetry slice of the application config, normalized once
// for the logger, tracer and meter providers.
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
	telemetry := cfg.Telemetry
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "credmatrix"
	}
	endpoint := strings.TrimSpace(telemetry.OTLPEndpoint)

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.ToLower(strings.TrimSpace(cfg.Environment)),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             logLevel(telemetry.LogLevel),
		LogFormat:            logFormat(telemetry.LogFormat),
		OtelEnabled:          telemetry.OTLPEnabled && endpoint != "",
		OtelExporterEndpoint: endpoint,
		OtelExporterProtocol: exporterProtocol(telemetry.OTLPProtocol),
		OtelSamplingRatio:    samplingRatio(telemetry.SamplingRatio),
	}
}

// Debug enables verbose request logging.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch c.Environment {
	case "development", "local", "test":
		return true
	}
	return false
}

func logLevel(raw string) string {
	switch level := strings.ToLower(strings.TrimSpace(raw)); level {
	case "debug", "info", "warn", "error":
		return level
	case "warning":
		return "warn"
	default:
		return "info"
	}
}

func logFormat(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "console") {
		return "console"
	}
	return "json"
}

func exporterProtocol(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "http", "http/protobuf":
		return "http"
	default:
		return "grpc"
	}
}

func samplingRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}
