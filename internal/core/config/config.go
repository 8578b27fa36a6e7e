// Package config provides configuration management for advisor services.
package config

import (
	"fmt"
	"time"
)

// ServiceConfig holds configuration for the evaluation service.
type ServiceConfig struct {
	Host           string
	Port           int
	HTTPPort       int
	RequestTimeout time.Duration
	MaxRules       int
	Workers        int
	LogLevel       string
	LogFormat      string
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:           "0.0.0.0",
		Port:           50051,
		HTTPPort:       8080,
		RequestTimeout: 30 * time.Second,
		MaxRules:       10000,
		Workers:        1,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// GRPCAddr returns the host:port the gRPC listener binds.
func (c *ServiceConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPAddr returns the host:port the HTTP admin listener binds.
func (c *ServiceConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Validate checks port ranges, positive limits and known log settings.
func (c *ServiceConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.HTTPPort == c.Port {
		return fmt.Errorf("http_port must differ from port, both are %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.MaxRules <= 0 {
		return fmt.Errorf("max_rules must be positive, got %d", c.MaxRules)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.LogFormat)
	}
	return nil
}
