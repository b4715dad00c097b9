// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads ThinkSpace settings from THINKSPACE_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/thinkspace/internal/util"
)

// knownWeakSecrets contains example secrets that must never be used.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
	"thinkspace-development-secret-key",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"THINKSPACE_DB_PATH" envDefault:"./data/thinkspace.db"`
	SessionSecret string `env:"THINKSPACE_SESSION_SECRET,required"`
	ServerHost    string `env:"THINKSPACE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"THINKSPACE_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"THINKSPACE_ENV" envDefault:"development"`
	LogLevel      string `env:"THINKSPACE_LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"THINKSPACE_LOG_FILE"` // rotated by lumberjack when set
	UploadsDir    string `env:"THINKSPACE_UPLOADS_DIR" envDefault:"./uploads"`
	SiteURL       string `env:"THINKSPACE_SITE_URL"` // absolute links in mail and notifications

	// Cache
	RedisURL     string `env:"THINKSPACE_REDIS_URL"`
	CachePrefix  string `env:"THINKSPACE_CACHE_PREFIX" envDefault:"thinkspace:"`
	CacheTTL     int    `env:"THINKSPACE_CACHE_TTL" envDefault:"300"` // seconds
	CacheMaxSize int    `env:"THINKSPACE_CACHE_MAX_SIZE" envDefault:"10000"`

	GeoIPDBPath string `env:"THINKSPACE_GEOIP_DB_PATH"` // GeoLite2-Country.mmdb

	// Outbound notifications
	WebhookURLs         []string `env:"THINKSPACE_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret       string   `env:"THINKSPACE_WEBHOOK_SECRET"`
	WebhookAllowPrivate bool     `env:"THINKSPACE_WEBHOOK_ALLOW_PRIVATE" envDefault:"false"`

	// Registration emails
	SMTPHost     string `env:"THINKSPACE_SMTP_HOST"`
	SMTPPort     int    `env:"THINKSPACE_SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"THINKSPACE_SMTP_USER"`
	SMTPPassword string `env:"THINKSPACE_SMTP_PASSWORD"`
	SMTPFrom     string `env:"THINKSPACE_SMTP_FROM"`

	PaymentPrefix string `env:"THINKSPACE_PAYMENT_PREFIX" envDefault:"TS"`

	// Seeding
	DoSeed        bool   `env:"THINKSPACE_DO_SEED" envDefault:"false"`
	DemoMode      bool   `env:"THINKSPACE_DEMO_MODE" envDefault:"false"`
	AdminEmail    string `env:"THINKSPACE_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"THINKSPACE_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// BaseURL returns SiteURL without a trailing slash, or the server address.
func (c Config) BaseURL() string {
	if c.SiteURL != "" {
		return strings.TrimRight(c.SiteURL, "/")
	}
	return "http://" + c.ServerAddr()
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheDuration returns CacheTTL as a duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// GeoIPEnabled returns true if a GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// WebhooksEnabled returns true if at least one notification endpoint is set.
func (c Config) WebhooksEnabled() bool {
	return len(c.WebhookURLs) > 0
}

// SMTPEnabled returns true if registration emails can be sent.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

const maxPaymentPrefixLength = 8

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("THINKSPACE_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}
	if cfg.WebhooksEnabled() && cfg.WebhookSecret == "" {
		slog.Warn("webhook endpoints configured without THINKSPACE_WEBHOOK_SECRET; payloads will be unsigned")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("THINKSPACE_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return fmt.Errorf("THINKSPACE_SESSION_SECRET is a known default value and must not be used")
		}
	}

	switch c.Env {
	case "development", "production":
	default:
		return fmt.Errorf("THINKSPACE_ENV must be development or production, got %q", c.Env)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("THINKSPACE_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("THINKSPACE_CACHE_TTL must not be negative")
	}

	urls := c.WebhookURLs[:0]
	for _, u := range c.WebhookURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := util.ValidateEndpointURL(u); err != nil {
			return fmt.Errorf("THINKSPACE_WEBHOOK_URLS: %w", err)
		}
		urls = append(urls, u)
	}
	c.WebhookURLs = urls

	c.PaymentPrefix = strings.ToUpper(strings.TrimSpace(c.PaymentPrefix))
	if c.PaymentPrefix == "" || len(c.PaymentPrefix) > maxPaymentPrefixLength || !isAlnum(c.PaymentPrefix) {
		return fmt.Errorf("THINKSPACE_PAYMENT_PREFIX must be 1 to %d letters or digits", maxPaymentPrefixLength)
	}
	return nil
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
