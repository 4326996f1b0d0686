package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	rediscache "github.com/tendant/portfolio-content/pkg/portfolio/cache/redis"
	"github.com/tendant/portfolio-content/pkg/portfolio/metrics"
	"github.com/tendant/portfolio-content/pkg/portfolio/objectkey"
	"github.com/tendant/portfolio-content/pkg/portfolio/repo/memory"
	repopg "github.com/tendant/portfolio-content/pkg/portfolio/repo/postgres"
	reposqlite "github.com/tendant/portfolio-content/pkg/portfolio/repo/sqlite"
	fsstorage "github.com/tendant/portfolio-content/pkg/portfolio/storage/fs"
	s3storage "github.com/tendant/portfolio-content/pkg/portfolio/storage/s3"
)

// Runtime is a wired service together with the resources it owns
type Runtime struct {
	Service    portfolio.Service
	Repository portfolio.Repository
	Stores     *portfolio.Stores
	Metrics    *metrics.Recorder
	// Local is the filesystem backend, served under its URL prefix
	Local *fsstorage.Backend

	closers []func() error
}

// Close releases database and cache connections
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildService creates the service and its dependencies from the configuration.
// Metrics register on reg, nil skips registration.
func (c *ServerConfig) BuildService(ctx context.Context, reg prometheus.Registerer) (*Runtime, error) {
	rt := &Runtime{}
	ok := false
	defer func() {
		if !ok {
			_ = rt.Close()
		}
	}()

	repo, err := c.buildRepository(ctx, rt)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	rt.Repository = repo

	stores, err := c.buildStores(rt)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backends: %w", err)
	}
	rt.Stores = stores

	rt.Metrics = metrics.New(reg)
	collector := portfolio.NewCollector(stores,
		portfolio.WithConcurrency(c.CollectorConcurrency),
		portfolio.WithTimeout(c.CollectorTimeout),
		portfolio.WithCollectorMetrics(rt.Metrics),
	)

	options := []portfolio.Option{
		portfolio.WithRepository(repo),
		portfolio.WithStores(stores),
		portfolio.WithCollector(collector),
		portfolio.WithMetrics(rt.Metrics),
	}

	if c.RedisURL != "" {
		cache, err := rediscache.New(ctx, c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rt.closers = append(rt.closers, cache.Close)
		options = append(options, portfolio.WithCache(cache, c.CacheTTL))
	}

	svc, err := portfolio.New(options...)
	if err != nil {
		return nil, err
	}
	rt.Service = svc
	ok = true
	return rt, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, rt *Runtime) (portfolio.Repository, error) {
	kind, err := c.DatabaseKind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case DatabaseMemory:
		slog.Warn("Using in-memory repository, data is lost on restart")
		return memory.New(), nil
	case DatabasePostgres:
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, c.DatabaseURL, c.DBSchema); err != nil {
				return nil, err
			}
		}
		repo, err := repopg.Open(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() error { repo.Close(); return nil })
		return repo, nil
	case DatabaseSQLite:
		store, err := reposqlite.Open(c.SQLitePath())
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", kind)
	}
}

// buildStores registers the local backend always and the remote backend when
// a bucket is configured, so references written by either stay resolvable.
func (c *ServerConfig) buildStores(rt *Runtime) (*portfolio.Stores, error) {
	keys, err := objectkey.ForLayout(c.KeyLayout)
	if err != nil {
		return nil, err
	}

	local, err := fsstorage.New(fsstorage.Config{
		BaseDir:      c.FS.BaseDir,
		URLPrefix:    c.FS.URLPrefix,
		KeyGenerator: keys,
	})
	if err != nil {
		return nil, fmt.Errorf("filesystem backend: %w", err)
	}
	rt.Local = local
	backends := []portfolio.BlobStore{local}

	if c.S3.Bucket != "" {
		remote, err := s3storage.New(s3storage.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			PublicBaseURL:          c.S3.PublicBaseURL,
			EnableSSE:              c.S3.EnableSSE,
			SSEAlgorithm:           c.S3.SSEAlgorithm,
			CreateBucketIfNotExist: c.S3.CreateBucket,
			KeyGenerator:           keys,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 backend: %w", err)
		}
		backends = append(backends, remote)
	}

	slog.Info("Storage configured", "writer", c.StorageBackend, "backends", len(backends), "key_layout", c.KeyLayout)
	return portfolio.NewStores(portfolio.BackendKind(c.StorageBackend), backends...)
}
