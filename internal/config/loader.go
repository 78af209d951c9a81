package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "WIZZY"
	envConfigDefaultPath = "WIZZY_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil {
				if logger != nil {
					logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
				}
			} else {
				if logger != nil {
					logger.Info().Str("path", configPath).Msg("created default config")
				}
				if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
					logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
				}
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// setDefaults registers every key so env vars can override keys absent from the file.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_header_timeout", cfg.Server.ReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("jwt.secret", cfg.JWT.Secret)
	v.SetDefault("jwt.issuer", cfg.JWT.Issuer)
	v.SetDefault("jwt.audience", cfg.JWT.Audience)
	v.SetDefault("jwt.ttl", cfg.JWT.TTL)

	v.SetDefault("storage.default", cfg.Storage.Default)
	v.SetDefault("storage.backends", cfg.Storage.Backends)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("storage.document_path", cfg.Storage.DocumentPath)
	v.SetDefault("storage.gorm.driver", cfg.Storage.Gorm.Driver)
	v.SetDefault("storage.gorm.dsn", cfg.Storage.Gorm.DSN)
	v.SetDefault("storage.gorm.max_idle_conns", cfg.Storage.Gorm.MaxIdleConns)
	v.SetDefault("storage.gorm.max_open_conns", cfg.Storage.Gorm.MaxOpenConns)
	v.SetDefault("storage.gorm.conn_max_lifetime", cfg.Storage.Gorm.ConnMaxLifetime)
	v.SetDefault("storage.gorm.log_level", cfg.Storage.Gorm.LogLevel)

	v.SetDefault("presence.driver", cfg.Presence.Driver)
	v.SetDefault("presence.redis.addr", cfg.Presence.Redis.Addr)
	v.SetDefault("presence.redis.password", cfg.Presence.Redis.Password)
	v.SetDefault("presence.redis.db", cfg.Presence.Redis.DB)
	v.SetDefault("presence.redis.prefix", cfg.Presence.Redis.Prefix)

	v.SetDefault("limits.messages_per_minute", cfg.Limits.MessagesPerMinute)
	v.SetDefault("limits.burst", cfg.Limits.Burst)

	v.SetDefault("password.algorithm", cfg.Password.Algorithm)
	v.SetDefault("password.bcrypt_cost", cfg.Password.BcryptCost)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
