package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	if listenAddr := os.Getenv("EASYSWAN_LISTEN_ADDR"); listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	if dbPath := os.Getenv("EASYSWAN_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if principalsPath := os.Getenv("EASYSWAN_PRINCIPALS_PATH"); principalsPath != "" {
		cfg.Storage.PrincipalsPath = principalsPath
	}

	if caDir := os.Getenv("EASYSWAN_CA_DIR"); caDir != "" {
		cfg.CA.Dir = caDir
	}

	if username := os.Getenv("EASYSWAN_USERNAME"); username != "" {
		cfg.Auth.Username = username
	}

	if passwordHash := os.Getenv("EASYSWAN_PASSWORD_HASH"); passwordHash != "" {
		cfg.Auth.PasswordHash = passwordHash
	}

	// Validate again after env overrides
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in optional fields before validation
func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.CA.RootValidityDays == 0 {
		cfg.CA.RootValidityDays = 3650
	}
	if cfg.CA.DefaultValidityDays == 0 {
		cfg.CA.DefaultValidityDays = 365
	}
	if cfg.CA.MaxValidityDays == 0 {
		cfg.CA.MaxValidityDays = cfg.CA.RootValidityDays
	}
	if cfg.CA.OpTimeout == "" {
		cfg.CA.OpTimeout = "10s"
	}
	if cfg.Session.TTL == "" {
		cfg.Session.TTL = "12h"
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "EasySwanVPN"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
