// Package config loads the server-level environment surface (spec §6's
// CLI/env section): bind address, publisher config root, and the two
// opt-in switches (dev-mode proxy, OTEL export). Per-project and
// per-package configuration lives in pkg/pubconfig instead.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the process-level configuration, sourced entirely from the
// environment — unlike the teacher's Config there is no config.yaml layer,
// since spec §6 names only environment variables for server startup.
type Config struct {
	// Port is the HTTP listen port.
	Port string `env:"PUBLISHER_PORT" env-default:"4000"`

	// Host is the HTTP bind host.
	Host string `env:"PUBLISHER_HOST" env-default:"localhost"`

	// ServerRoot is the publisher config root: the directory containing
	// publisher.config.json and every project's files (spec §4.1/§4.7).
	ServerRoot string `env:"SERVER_ROOT" env-default:"."`

	// NodeEnv, when "development", enables the front-end dev-server reverse
	// proxy instead of serving a built UI bundle (spec §6).
	NodeEnv string `env:"NODE_ENV" env-default:"production"`

	// OTLPEndpoint, when set, enables OpenTelemetry trace/metric export to
	// this collector endpoint (spec §6). Empty disables export.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
}

// IsDevelopment reports whether the front-end dev-server proxy should be
// enabled (spec §6: "NODE_ENV=development (enable front-end proxy)").
func (c *Config) IsDevelopment() bool {
	return c.NodeEnv == "development"
}

// TelemetryEnabled reports whether an OTLP endpoint was configured.
func (c *Config) TelemetryEnabled() bool {
	return c.OTLPEndpoint != ""
}

// Addr returns the host:port pair net/http.Server.Addr expects.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment configuration: %w", err)
	}
	return cfg, nil
}
