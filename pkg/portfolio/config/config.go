// Package config loads server configuration and wires the portfolio service
// from it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/portfolio-content/pkg/portfolio"
	"github.com/tendant/portfolio-content/pkg/portfolio/objectkey"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Database kinds derived from DatabaseURL
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// ServerConfig represents server configuration for the portfolio service
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// DatabaseURL is "memory", a postgres:// URL or sqlite://path
	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA" env-default:"portfolio"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"true"`

	// StorageBackend is the backend new uploads go to: local or remote
	StorageBackend string `env:"STORAGE_BACKEND" env-default:"local"`
	KeyLayout      string `env:"KEY_LAYOUT" env-default:"flat"`
	FS             FSConfig
	S3             S3Config

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"5m"`

	APIKeySHA256 string `env:"API_KEY_SHA256"`

	CollectorConcurrency int           `env:"COLLECTOR_CONCURRENCY" env-default:"4"`
	CollectorTimeout     time.Duration `env:"COLLECTOR_TIMEOUT" env-default:"30s"`
}

// FSConfig configures the local filesystem backend
type FSConfig struct {
	BaseDir   string `env:"FS_BASE_DIR" env-default:"./data/uploads"`
	URLPrefix string `env:"FS_URL_PREFIX" env-default:"/uploads"`
}

// S3Config configures the remote object store backend
type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" env-default:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PublicBaseURL   string `env:"S3_PUBLIC_BASE_URL"`
	CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-default:"false"`
	EnableSSE       bool   `env:"S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm    string `env:"S3_SSE_ALGORITHM" env-default:"AES256"`
}

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseURL:    DatabaseMemory,
		DBSchema:       "portfolio",
		AutoMigrate:    true,
		StorageBackend: string(portfolio.BackendLocal),
		KeyLayout:      "flat",
		FS: FSConfig{
			BaseDir:   "./data/uploads",
			URLPrefix: portfolio.DefaultLocalURLPrefix,
		},
		S3: S3Config{
			Region:       "us-east-1",
			SSEAlgorithm: "AES256",
		},
		CacheTTL:             portfolio.DefaultCacheTTL,
		CollectorConcurrency: portfolio.DefaultCollectorConcurrency,
		CollectorTimeout:     portfolio.DefaultCollectorTimeout,
	}
}

// DatabaseKind reports which repository DatabaseURL selects
func (c *ServerConfig) DatabaseKind() (string, error) {
	url := strings.TrimSpace(c.DatabaseURL)
	switch {
	case url == "" || url == DatabaseMemory:
		return DatabaseMemory, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DatabasePostgres, nil
	case strings.HasPrefix(url, "sqlite://"):
		if c.SQLitePath() == "" {
			return "", errors.New("sqlite path cannot be empty in DATABASE_URL")
		}
		return DatabaseSQLite, nil
	default:
		return "", fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgres://...' or 'sqlite://path')", url)
	}
}

// SQLitePath returns the file path of a sqlite:// DatabaseURL
func (c *ServerConfig) SQLitePath() string {
	return strings.TrimPrefix(strings.TrimSpace(c.DatabaseURL), "sqlite://")
}

// IsDevelopment reports whether the server runs in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if _, err := c.DatabaseKind(); err != nil {
		return err
	}

	switch portfolio.BackendKind(c.StorageBackend) {
	case portfolio.BackendLocal:
		if c.FS.BaseDir == "" {
			return errors.New("fs base directory is required for the local backend")
		}
	case portfolio.BackendRemote:
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required for the remote backend")
		}
	default:
		return fmt.Errorf("storage backend must be %q or %q, got %q", portfolio.BackendLocal, portfolio.BackendRemote, c.StorageBackend)
	}

	if _, err := objectkey.ForLayout(c.KeyLayout); err != nil {
		return err
	}

	if c.CollectorConcurrency < 1 {
		return errors.New("collector concurrency must be at least 1")
	}
	if c.CollectorTimeout <= 0 {
		return errors.New("collector timeout must be positive")
	}

	return nil
}
