package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// WithEnv reads every ServerConfig field from the environment. Unset
// variables fall back to their env-default tags.
//
//	PORT, ENVIRONMENT
//	DATABASE_URL (memory | postgres://... | sqlite://path), DB_SCHEMA, AUTO_MIGRATE
//	STORAGE_BACKEND (local | remote), KEY_LAYOUT (flat | sharded)
//	FS_BASE_DIR, FS_URL_PREFIX
//	S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY,
//	S3_USE_PATH_STYLE, S3_PUBLIC_BASE_URL, S3_CREATE_BUCKET, S3_ENABLE_SSE, S3_SSE_ALGORITHM
//	REDIS_URL, CACHE_TTL
//	API_KEY_SHA256
//	COLLECTOR_CONCURRENCY, COLLECTOR_TIMEOUT
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("read environment: %w", err)
		}
		return nil
	}
}

// WithDotEnv loads variables from the given files into the process
// environment without overriding ones already set. Missing files are skipped.
func WithDotEnv(files ...string) Option {
	return func(c *ServerConfig) error {
		if len(files) == 0 {
			files = []string{".env"}
		}
		for _, file := range files {
			if err := godotenv.Load(file); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					slog.Debug("No env file", "file", file)
					continue
				}
				return fmt.Errorf("load %s: %w", file, err)
			}
		}
		return nil
	}
}

// LoadServerConfig reads .env when present, then the environment
func LoadServerConfig() (*ServerConfig, error) {
	return Load(WithDotEnv(), WithEnv())
}

// EnvUsage describes every supported variable, for --help output
func EnvUsage() (string, error) {
	var cfg ServerConfig
	return cleanenv.GetDescription(&cfg, nil)
}
