// Package config reads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the settings of the roster command. Flags override fields
// after Load.
type Config struct {
	DataDir   string `env:"ROSTER_DATA_DIR" envDefault:"db"`
	BackupDir string `env:"ROSTER_BACKUP_DIR"`
	LogLevel  string `env:"ROSTER_LOG_LEVEL" envDefault:"info"`

	S3Bucket    string `env:"ROSTER_S3_BUCKET"`
	S3Region    string `env:"ROSTER_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"ROSTER_S3_ENDPOINT"`
	S3PathStyle bool   `env:"ROSTER_S3_PATH_STYLE"`
}

// Load reads an optional dotenv file and then parses the environment.
// Variables already set in the environment win over the file. An empty
// dotenvPath or a missing file is not an error.
func Load(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Level maps LogLevel onto a slog level. Unknown names fall back to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BackupEnabled reports whether any backup target is configured.
func (c Config) BackupEnabled() bool {
	return c.BackupDir != "" || c.S3Bucket != ""
}
