// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"AITASOL_DB_PATH" envDefault:"./data/aitasol.db"`
	SessionSecret string `env:"AITASOL_SESSION_SECRET,required"`
	ServerHost    string `env:"AITASOL_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"AITASOL_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"AITASOL_ENV" envDefault:"development"`
	LogLevel      string `env:"AITASOL_LOG_LEVEL" envDefault:"info"`
	AdminPrefix   string `env:"AITASOL_ADMIN_PREFIX" envDefault:"/admin"`
	SiteURL       string `env:"AITASOL_SITE_URL"` // Public base URL for sitemap links; derived from the request when empty

	// Change notification across processes
	RedisURL    string `env:"AITASOL_REDIS_URL"`                          // Optional Redis URL for live updates between instances
	RedisPrefix string `env:"AITASOL_REDIS_PREFIX" envDefault:"aitasol:"` // Redis channel prefix

	// Optional third-party widgets; empty disables them
	AnalyticsID   string `env:"AITASOL_ANALYTICS_ID"`
	ChatWidgetKey string `env:"AITASOL_CHAT_WIDGET_KEY"`
	ChatWidgetID  string `env:"AITASOL_CHAT_WIDGET_ID"`

	// Image compression for inline uploads
	ImageMaxWidth int `env:"AITASOL_IMAGE_MAX_WIDTH" envDefault:"1920"`
	ImageQuality  int `env:"AITASOL_IMAGE_QUALITY" envDefault:"82"`

	// Background jobs
	ThemeAuditSchedule string        `env:"AITASOL_THEME_AUDIT_SCHEDULE" envDefault:"*/15 * * * *"`
	EventPruneSchedule string        `env:"AITASOL_EVENT_PRUNE_SCHEDULE" envDefault:"30 3 * * *"`
	EventRetention     time.Duration `env:"AITASOL_EVENT_RETENTION" envDefault:"720h"`

	// Seeding configuration
	DoSeed        bool   `env:"AITASOL_DO_SEED" envDefault:"false"` // Enable database seeding
	AdminEmail    string `env:"AITASOL_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"AITASOL_ADMIN_PASSWORD"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedis returns true if Redis change notification is configured.
func (c Config) UseRedis() bool {
	return c.RedisURL != ""
}

// AnalyticsEnabled returns true if an analytics id is configured.
func (c Config) AnalyticsEnabled() bool {
	return c.AnalyticsID != ""
}

// ChatWidgetEnabled returns true if both chat widget keys are configured.
func (c Config) ChatWidgetEnabled() bool {
	return c.ChatWidgetKey != "" && c.ChatWidgetID != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
// AES-256 requires 32 bytes minimum for secure encryption.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("AITASOL_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("AITASOL_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("AITASOL_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if !strings.HasPrefix(cfg.AdminPrefix, "/") || cfg.AdminPrefix == "/" {
		return nil, fmt.Errorf("AITASOL_ADMIN_PREFIX must start with / and name a path, got %q", cfg.AdminPrefix)
	}
	cfg.AdminPrefix = strings.TrimRight(cfg.AdminPrefix, "/")

	if cfg.DoSeed && cfg.AdminPassword == "" {
		return nil, fmt.Errorf("AITASOL_ADMIN_PASSWORD is required when AITASOL_DO_SEED is set")
	}

	return cfg, nil
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
