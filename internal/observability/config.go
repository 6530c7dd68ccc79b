package observability

import (
	"strings"

	"github.com/smallbiznis/slotwise/internal/config"
)

// Config holds observability configuration derived from the app config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel       string
	LogFormat      string
	LogFile        string
	LogMaxSizeMB   int
	LogMaxBackups  int
	LogMaxAgeDays  int
	OtelEnabled    bool
	OtelEndpoint   string
	OtelSampleRate float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "slotwise"
	}
	return Config{
		ServiceName:    serviceName,
		Environment:    strings.TrimSpace(cfg.Environment),
		Version:        strings.TrimSpace(cfg.AppVersion),
		LogLevel:       cfg.LogLevel,
		LogFormat:      cfg.LogFormat,
		LogFile:        cfg.LogFile,
		LogMaxSizeMB:   cfg.LogMaxSizeMB,
		LogMaxBackups:  cfg.LogMaxBackups,
		LogMaxAgeDays:  cfg.LogMaxAgeDays,
		OtelEnabled:    cfg.OtelEnabled,
		OtelEndpoint:   cfg.OTLPEndpoint,
		OtelSampleRate: cfg.OtelSampleRate,
	}
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
