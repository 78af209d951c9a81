package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	Limits   LimitsConfig   `mapstructure:"limits" yaml:"limits"`
	Password PasswordConfig `mapstructure:"password" yaml:"password"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// JWTConfig configures session tokens.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// StorageConfig lists the enabled backends and their locations.
type StorageConfig struct {
	Default      string     `mapstructure:"default" yaml:"default"`
	Backends     []string   `mapstructure:"backends" yaml:"backends"`
	SQLitePath   string     `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	DocumentPath string     `mapstructure:"document_path" yaml:"document_path"`
	Gorm         GormConfig `mapstructure:"gorm" yaml:"gorm"`
}

// GormConfig configures the GORM backend.
type GormConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
}

// PresenceConfig selects where online flags live.
type PresenceConfig struct {
	Driver string      `mapstructure:"driver" yaml:"driver"` // store or redis
	Redis  RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the Redis presence driver.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// LimitsConfig holds per-user send limits. Zero disables limiting.
type LimitsConfig struct {
	MessagesPerMinute int `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
	Burst             int `mapstructure:"burst" yaml:"burst"`
}

// PasswordConfig selects the password hashing algorithm for new hashes.
type PasswordConfig struct {
	Algorithm  string `mapstructure:"algorithm" yaml:"algorithm"` // argon2id or bcrypt
	BcryptCost int    `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
}

// Backend names understood by the storage layer.
const (
	BackendSQLite   = "sqlite"
	BackendDocument = "document"
	BackendGorm     = "gorm"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		JWT: JWTConfig{
			Secret:   "change-me-in-production",
			Issuer:   "wizzychat",
			Audience: "wizzychat-clients",
			TTL:      24 * time.Hour,
		},
		Storage: StorageConfig{
			Default:      BackendSQLite,
			Backends:     []string{BackendSQLite, BackendDocument, BackendGorm},
			SQLitePath:   "wizzychat.db",
			DocumentPath: "wizzychat.json",
			Gorm: GormConfig{
				Driver:          "sqlite",
				DSN:             "wizzychat-gorm.db",
				MaxIdleConns:    5,
				MaxOpenConns:    20,
				ConnMaxLifetime: time.Hour,
				LogLevel:        "warn",
			},
		},
		Presence: PresenceConfig{
			Driver: "store",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "wizzychat",
			},
		},
		Limits: LimitsConfig{
			MessagesPerMinute: 60,
			Burst:             10,
		},
		Password: PasswordConfig{
			Algorithm:  "argon2id",
			BcryptCost: 10,
		},
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if len(c.Storage.Backends) == 0 {
		return errors.New("storage.backends must not be empty")
	}
	for _, name := range c.Storage.Backends {
		switch name {
		case BackendSQLite, BackendDocument, BackendGorm:
		default:
			return fmt.Errorf("unknown storage backend %q", name)
		}
	}
	if !slices.Contains(c.Storage.Backends, c.Storage.Default) {
		return fmt.Errorf("default backend %q is not enabled", c.Storage.Default)
	}
	switch c.Presence.Driver {
	case "store", "redis":
	default:
		return fmt.Errorf("unknown presence driver %q", c.Presence.Driver)
	}
	switch c.Password.Algorithm {
	case "argon2id", "bcrypt":
	default:
		return fmt.Errorf("unknown password algorithm %q", c.Password.Algorithm)
	}
	if c.Limits.MessagesPerMinute < 0 || c.Limits.Burst < 0 {
		return errors.New("limits must not be negative")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the settings exposed as command-line flags are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ReadHeaderTimeout != 0 {
		c.Server.ReadHeaderTimeout = other.Server.ReadHeaderTimeout
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Storage.Default != "" {
		c.Storage.Default = other.Storage.Default
	}
}
