package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"host":       "server.host",
	"port":       "server.port",
	"http-port":  "server.http_port",
	"workers":    "engine.workers",
	"max-rules":  "server.max_rules",
	"timeout":    "server.request_timeout",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// LoadConfig loads configuration using viper.
// CLI flags > environment > config file > defaults precedence. Only flags the
// user actually set override lower layers; flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*ServiceConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServiceConfig
	def := DefaultServiceConfig()
	v.SetDefault("server.host", def.Host)
	v.SetDefault("server.port", def.Port)
	v.SetDefault("server.http_port", def.HTTPPort)
	v.SetDefault("server.request_timeout", def.RequestTimeout.String())
	v.SetDefault("server.max_rules", def.MaxRules)
	v.SetDefault("engine.workers", def.Workers)
	v.SetDefault("log.level", def.LogLevel)
	v.SetDefault("log.format", def.LogFormat)

	// Bind environment variables with ADV_ prefix
	v.SetEnvPrefix("ADV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	cfg := &ServiceConfig{
		Host:           v.GetString("server.host"),
		Port:           v.GetInt("server.port"),
		HTTPPort:       v.GetInt("server.http_port"),
		RequestTimeout: v.GetDuration("server.request_timeout"),
		MaxRules:       v.GetInt("server.max_rules"),
		Workers:        v.GetInt("engine.workers"),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		LogFormat:      strings.ToLower(v.GetString("log.format")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
