// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Clear environment and set only required var
	os.Clearenv()
	setEnv(t, "AITASOL_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Check defaults
	if cfg.DBPath != "./data/aitasol.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/aitasol.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	customSecret := "custom-secret-key-32-bytes-long!"
	setEnv(t, "AITASOL_SESSION_SECRET", customSecret)
	setEnv(t, "AITASOL_DB_PATH", "/custom/path.db")
	setEnv(t, "AITASOL_SERVER_HOST", "0.0.0.0")
	setEnv(t, "AITASOL_SERVER_PORT", "3000")
	setEnv(t, "AITASOL_ENV", "production")
	setEnv(t, "AITASOL_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.SessionSecret != customSecret {
		t.Errorf("SessionSecret = %q, want %q", cfg.SessionSecret, customSecret)
	}
	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/custom/path.db")
	}
	if cfg.ServerHost != "0.0.0.0" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "0.0.0.0")
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 3000)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q, want %q", cfg.Env, "production")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Clearenv()
	// Don't set AITASOL_SESSION_SECRET

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail when AITASOL_SESSION_SECRET is not set")
	}
}

func TestLoad_SessionSecretTooShort(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"short", "short"},
		{"31_bytes", "1234567890123456789012345678901"}, // 31 bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "AITASOL_SESSION_SECRET", tt.secret)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() should fail with %d-byte secret", len(tt.secret))
			}
		})
	}
}

func TestLoad_SessionSecretMinimumLength(t *testing.T) {
	os.Clearenv()
	// Exactly 32 bytes should work
	secret32 := "12345678901234567890123456789012"
	setEnv(t, "AITASOL_SESSION_SECRET", secret32)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should succeed with 32-byte secret: %v", err)
	}
	if cfg.SessionSecret != secret32 {
		t.Errorf("SessionSecret = %q, want %q", cfg.SessionSecret, secret32)
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_ServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 8080, "localhost:8080"},
		{"0.0.0.0", 3000, "0.0.0.0:3000"},
		{"127.0.0.1", 443, "127.0.0.1:443"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cfg := Config{ServerHost: tt.host, ServerPort: tt.port}
			if got := cfg.ServerAddr(); got != tt.want {
				t.Errorf("ServerAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_FeatureFlags(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		analytics bool
		chat      bool
		redis     bool
	}{
		{"nothing set", Config{}, false, false, false},
		{"analytics only", Config{AnalyticsID: "G-123"}, true, false, false},
		{"chat key without id", Config{ChatWidgetKey: "k"}, false, false, false},
		{"chat complete", Config{ChatWidgetKey: "k", ChatWidgetID: "w"}, false, true, false},
		{"redis", Config{RedisURL: "redis://localhost:6379/0"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.AnalyticsEnabled(); got != tt.analytics {
				t.Errorf("AnalyticsEnabled() = %v, want %v", got, tt.analytics)
			}
			if got := tt.cfg.ChatWidgetEnabled(); got != tt.chat {
				t.Errorf("ChatWidgetEnabled() = %v, want %v", got, tt.chat)
			}
			if got := tt.cfg.UseRedis(); got != tt.redis {
				t.Errorf("UseRedis() = %v, want %v", got, tt.redis)
			}
		})
	}
}

func TestLoad_OptionalWidgetsDoNotFail(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AITASOL_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")
	setEnv(t, "AITASOL_CHAT_WIDGET_KEY", "only-half")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ChatWidgetEnabled() {
		t.Error("ChatWidgetEnabled() = true with only a key set")
	}
}

func TestLoad_JobDefaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AITASOL_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.EventRetention != 720*time.Hour {
		t.Errorf("EventRetention = %v, want %v", cfg.EventRetention, 720*time.Hour)
	}
	if cfg.ThemeAuditSchedule != "*/15 * * * *" {
		t.Errorf("ThemeAuditSchedule = %q", cfg.ThemeAuditSchedule)
	}
	if cfg.AdminPrefix != "/admin" {
		t.Errorf("AdminPrefix = %q, want %q", cfg.AdminPrefix, "/admin")
	}
}

func TestLoad_AdminPrefix(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"/staff", "/staff", false},
		{"/staff/", "/staff", false},
		{"staff", "", true},
		{"/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "AITASOL_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")
			setEnv(t, "AITASOL_ADMIN_PREFIX", tt.value)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Load() should fail for prefix %q", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.AdminPrefix != tt.want {
				t.Errorf("AdminPrefix = %q, want %q", cfg.AdminPrefix, tt.want)
			}
		})
	}
}

func TestLoad_SeedRequiresAdminPassword(t *testing.T) {
	os.Clearenv()
	setEnv(t, "AITASOL_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")
	setEnv(t, "AITASOL_DO_SEED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail when seeding without AITASOL_ADMIN_PASSWORD")
	}

	setEnv(t, "AITASOL_ADMIN_PASSWORD", "Str0ng-Passw0rd!")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.DoSeed {
		t.Error("DoSeed = false, want true")
	}
}

func TestLoad_RejectsKnownWeakSecret(t *testing.T) {
	for _, weak := range knownWeakSecrets {
		os.Clearenv()
		setEnv(t, "AITASOL_SESSION_SECRET", weak)
		if _, err := Load(); err == nil {
			t.Errorf("Load() accepted weak secret %q", weak)
		}
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"aaaaaaaaaaaaaaaa1111111111111111", false},
		{"aaaaaaaaAAAAAAAA1111111111111111", true},
		{"test-secret-key-32-bytes-long!!!", true},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
