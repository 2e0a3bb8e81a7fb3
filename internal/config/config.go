package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                    int      `env:"PORT" envDefault:"8080"`
	DatabaseURL             string   `env:"DATABASE_URL,required"`
	RedisURL                string   `env:"REDIS_URL,required"`
	BotToken                string   `env:"BOT_TOKEN,required"`
	BotAPIURL               string   `env:"BOT_API_URL" envDefault:"https://api.telegram.org"`
	WebhookSecret           string   `env:"WEBHOOK_SECRET"`
	RemoteGatewayURL        string   `env:"REMOTE_GATEWAY_URL,required"`
	Proxies                 []string `env:"PROXIES,required" envSeparator:","`
	BackupDir               string   `env:"BACKUP_DIR" envDefault:"sessions"`
	EncryptionKey           string   `env:"ENCRYPTION_KEY"`
	AdminTokenHash          string   `env:"ADMIN_TOKEN_HASH"`
	AuthIdleTimeoutSeconds  int      `env:"AUTH_IDLE_TIMEOUT_SECONDS" envDefault:"900"`
	AuthPasswordMaxAttempts int      `env:"AUTH_PASSWORD_MAX_ATTEMPTS" envDefault:"0"`
	LogLevel                string   `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) AuthIdleTimeout() time.Duration {
	return time.Duration(c.AuthIdleTimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ProxyURLs parses the configured egress paths in order. The position of a
// proxy in PROXIES is its index; stored sessions refer to it by that index.
func (c *Config) ProxyURLs() ([]*url.URL, error) {
	urls := make([]*url.URL, 0, len(c.Proxies))
	for i, raw := range c.Proxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("PROXIES[%d]: %w", i, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf("PROXIES[%d]: unsupported scheme %q", i, u.Scheme)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("PROXIES[%d]: missing host", i)
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("PROXIES must list at least one egress proxy")
	}
	return urls, nil
}

func (c *Config) Validate(isProduction bool) error {
	if _, err := c.ProxyURLs(); err != nil {
		return err
	}

	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <token>)")
		}
	}

	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (generate with: openssl rand -hex 32)")
		}
	}

	if c.AuthIdleTimeoutSeconds <= 0 {
		return fmt.Errorf("AUTH_IDLE_TIMEOUT_SECONDS must be positive")
	}
	if c.AuthPasswordMaxAttempts < 0 {
		return fmt.Errorf("AUTH_PASSWORD_MAX_ATTEMPTS must be zero (unbounded) or positive")
	}

	if isProduction {
		if c.WebhookSecret == "" {
			log.Warn().Msg("WEBHOOK_SECRET is empty in production: webhook requests are not authenticated")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: session blobs will be stored in plaintext")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
