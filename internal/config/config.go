package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	CA       CAConfig       `yaml:"ca"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// StorageConfig selects the principal store backend
type StorageConfig struct {
	Backend        string `yaml:"backend"`         // "file" or "sqlite"
	PrincipalsPath string `yaml:"principals_path"` // used by the file backend
}

// DatabaseConfig contains database configuration (audit log, sqlite principal store)
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CAConfig contains certificate authority configuration
type CAConfig struct {
	Dir                 string `yaml:"dir"`
	RootValidityDays    int    `yaml:"root_validity_days"`
	DefaultValidityDays int    `yaml:"default_validity_days"`
	MaxValidityDays     int    `yaml:"max_validity_days"`
	OpTimeout           string `yaml:"op_timeout"`
}

// AuthConfig contains operator credential and TOTP configuration
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
	Issuer       string `yaml:"issuer"`
}

// SessionConfig contains session configuration
type SessionConfig struct {
	TTL string `yaml:"ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	// Storage validation
	if c.Storage.Backend != "file" && c.Storage.Backend != "sqlite" {
		return fmt.Errorf("storage.backend must be 'file' or 'sqlite'")
	}
	if c.Storage.Backend == "file" && c.Storage.PrincipalsPath == "" {
		return fmt.Errorf("storage.principals_path is required for the file backend")
	}

	// Database validation (audit log always lives here)
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// CA validation
	if c.CA.Dir == "" {
		return fmt.Errorf("ca.dir is required")
	}
	if c.CA.RootValidityDays <= 0 {
		return fmt.Errorf("ca.root_validity_days must be positive")
	}
	if c.CA.DefaultValidityDays <= 0 {
		return fmt.Errorf("ca.default_validity_days must be positive")
	}
	if c.CA.MaxValidityDays < c.CA.DefaultValidityDays {
		return fmt.Errorf("ca.max_validity_days must be >= ca.default_validity_days")
	}
	if _, err := time.ParseDuration(c.CA.OpTimeout); err != nil {
		return fmt.Errorf("ca.op_timeout is invalid: %w", err)
	}

	// Auth validation
	if c.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if c.Auth.PasswordHash == "" {
		return fmt.Errorf("auth.password_hash is required")
	}
	if c.Auth.Issuer == "" {
		return fmt.Errorf("auth.issuer is required")
	}

	// Session validation
	if _, err := time.ParseDuration(c.Session.TTL); err != nil {
		return fmt.Errorf("session.ttl is invalid: %w", err)
	}

	// Logging validation
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}

// GetOpTimeout returns the CA operation timeout as time.Duration
func (c *Config) GetOpTimeout() time.Duration {
	d, _ := time.ParseDuration(c.CA.OpTimeout)
	return d
}

// GetSessionTTL returns the session lifetime as time.Duration
func (c *Config) GetSessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}
