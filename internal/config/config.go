// Package config provides configuration loading and validation from environment variables.
package config

import (
	"encoding/base64"
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	ListenAddr        string `env:"LISTEN_ADDR" envDefault:":8080"`
	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR" envDefault:"localhost:9090"`
	DatabasePath      string `env:"DATABASE_PATH" envDefault:"/data/accessgate.db"`

	// EncryptionKey is the base64-encoded 32-byte AES key protecting
	// stored passkeys. Generate one with "accessgate keygen".
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// AdminPassword authenticates operator logins on /admin.
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// EdgeRulesPath is the rules file the maintenance toggle rewrites.
	// Empty disables edge rule management.
	EdgeRulesPath string `env:"EDGE_RULES_PATH"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	if _, err := c.DecodeEncryptionKey(); err != nil {
		return err
	}
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD environment variable is required")
	}
	return nil
}

// DecodeEncryptionKey decodes and length-checks the AES key.
func (c *Config) DecodeEncryptionKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
