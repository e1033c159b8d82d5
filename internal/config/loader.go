package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

// LoadConfig loads configuration in this order, later sources winning:
//  1. Default values
//  2. The YAML file at path (optional; missing is fine)
//  3. A .env file in the working directory (optional)
//  4. SELFBOT_* environment variables, e.g. SELFBOT_TELEGRAM_API_HASH
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, apperrors.NewConfigError("failed to load .env file", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, apperrors.NewConfigError("failed to read config file "+path, err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse config", err)
	}

	// Prefixes may arrive from the environment as one space-separated string.
	if len(cfg.Commands.Prefixes) == 1 && strings.Contains(cfg.Commands.Prefixes[0], " ") {
		cfg.Commands.Prefixes = strings.Fields(cfg.Commands.Prefixes[0])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"backend", cfg.Telegram.Backend,
		"db_path", cfg.Database.Path,
		"log_level", cfg.Log.Level)
	return cfg, nil
}

// loadDotEnv exports the variables in path unless they are already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
