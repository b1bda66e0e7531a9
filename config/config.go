// Package config loads service configuration from the environment, an
// optional .env file and command-line flags, and builds the logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment keys.
const (
	KeyPort            = "PORT"
	KeyDBPath          = "DB_PATH"
	KeyLogLevel        = "LOG_LEVEL"
	KeyLogFormat       = "LOG_FORMAT"
	KeyCORSOrigins     = "CORS_ORIGINS"
	KeyAuditEnabled    = "AUDIT_ENABLED"
	KeyAuditInterval   = "AUDIT_INTERVAL"
	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"
)

// Config holds application configuration.
type Config struct {
	Port string

	// DBPath is the SQLite file. Empty keeps everything in memory.
	DBPath string

	LogLevel  string
	LogFormat string

	CORSOrigins []string

	// The stock auditor recomputes the stock report on a ticker and
	// publishes batch health gauges. Off unless enabled.
	AuditEnabled  bool
	AuditInterval time.Duration

	ShutdownTimeout time.Duration
}

// New returns a viper instance with defaults set and environment lookup
// enabled. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyDBPath, "./data/ledger.db")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyCORSOrigins, "*")
	v.SetDefault(KeyAuditEnabled, false)
	v.SetDefault(KeyAuditInterval, "5m")
	v.SetDefault(KeyShutdownTimeout, "10s")
	// DB_PATH= selects the in-memory store, so empty values must count.
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. A .env file in the working directory is
// applied first if present; real environment variables win over it.
func Load(v *viper.Viper) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         v.GetString(KeyPort),
		DBPath:       v.GetString(KeyDBPath),
		LogLevel:     strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:    strings.ToLower(v.GetString(KeyLogFormat)),
		AuditEnabled: v.GetBool(KeyAuditEnabled),
	}

	for _, o := range strings.Split(v.GetString(KeyCORSOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.AuditInterval, err = duration(v, KeyAuditInterval); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = duration(v, KeyShutdownTimeout); err != nil {
		return nil, err
	}

	if cfg.Port == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyPort)
	}
	if cfg.AuditEnabled && cfg.AuditInterval <= 0 {
		return nil, fmt.Errorf("%s must be positive when the auditor is enabled", KeyAuditInterval)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("%s must be json or text, got %q", KeyLogFormat, cfg.LogFormat)
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
