package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Server.Addr != def.Server.Addr || cfg.JWT.TTL != def.JWT.TTL {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Storage.Default != BackendSQLite || len(cfg.Storage.Backends) != 3 {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}

	// The written file must load back to the same values.
	again, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Storage.Gorm.ConnMaxLifetime != def.Storage.Gorm.ConnMaxLifetime {
		t.Fatalf("duration lost in round trip: %v", again.Storage.Gorm.ConnMaxLifetime)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  addr: \":9000\"\nstorage:\n  default: document\nlimits:\n  messages_per_minute: 5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WIZZY_SERVER_ADDR", ":9100")
	t.Setenv("WIZZY_JWT_TTL", "1h")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":9100" {
		t.Fatalf("env should override file, got %s", cfg.Server.Addr)
	}
	if cfg.JWT.TTL != time.Hour {
		t.Fatalf("expected ttl from env, got %v", cfg.JWT.TTL)
	}
	if cfg.Storage.Default != BackendDocument {
		t.Fatalf("expected default backend from file, got %s", cfg.Storage.Default)
	}
	if cfg.Limits.MessagesPerMinute != 5 {
		t.Fatalf("expected limit from file, got %d", cfg.Limits.MessagesPerMinute)
	}
	if cfg.Storage.SQLitePath != Default().Storage.SQLitePath {
		t.Fatalf("missing keys should keep defaults, got %s", cfg.Storage.SQLitePath)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Storage.Backends = []string{"mongo"} }, true},
		{"no backends", func(c *Config) { c.Storage.Backends = nil }, true},
		{"default not enabled", func(c *Config) { c.Storage.Backends = []string{BackendDocument} }, true},
		{"unknown presence", func(c *Config) { c.Presence.Driver = "memcached" }, true},
		{"unknown hash", func(c *Config) { c.Password.Algorithm = "sha256" }, true},
		{"negative limit", func(c *Config) { c.Limits.MessagesPerMinute = -1 }, true},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"redis presence", func(c *Config) { c.Presence.Driver = "redis" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	var override Config
	override.Server.Addr = ":7000"
	override.Storage.Default = BackendGorm

	cfg.UpdateFrom(override)

	if cfg.Server.Addr != ":7000" || cfg.Storage.Default != BackendGorm {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("zero values must not override, got level %q", cfg.Log.Level)
	}
}
