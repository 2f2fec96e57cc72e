// Package config loads application configuration from environment variables.
package config

import (
	"fmt"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/moneymap/moneymap/pkg/store"
)

// Config holds the application configuration loaded from environment
// variables.
type Config struct {
	// IMAPAddress is the mail server to fetch alerts from (host:port,
	// implicit TLS). Environment variable: MONEYMAP_IMAP_ADDR
	IMAPAddress string `koanf:"MONEYMAP_IMAP_ADDR"`

	// DialTimeoutSeconds bounds the mailbox connection attempt.
	// Environment variable: MONEYMAP_DIAL_TIMEOUT
	DialTimeoutSeconds int `koanf:"MONEYMAP_DIAL_TIMEOUT"`

	// GeminiAPIKey enables auto-categorization when set.
	// Environment variable: GEMINI_API_KEY
	GeminiAPIKey string `koanf:"GEMINI_API_KEY"`

	// GeminiModel overrides the default classification model.
	// Environment variable: GEMINI_MODEL
	GeminiModel string `koanf:"GEMINI_MODEL"`

	Postgres PostgresConfig
}

// PostgresConfig holds the PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// StoreConfig converts the postgres section into a store.Config.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		Database: c.Postgres.Database,
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
		SSLMode:  c.Postgres.SSLMode,
	}
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := k.UnmarshalWithConf("", &cfg.Postgres, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshaling postgres config: %w", err)
	}

	if cfg.IMAPAddress == "" {
		cfg.IMAPAddress = "imap.gmail.com:993"
	}
	if cfg.DialTimeoutSeconds <= 0 {
		cfg.DialTimeoutSeconds = 30
	}

	return &cfg, nil
}
