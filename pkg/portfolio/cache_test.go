package portfolio_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	"github.com/tendant/portfolio-content/pkg/portfolio/presets"
	"github.com/tendant/portfolio-content/pkg/portfolio/repo/memory"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *mapCache) hitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func TestCachedReadsAreInvalidatedByWrites(t *testing.T) {
	cache := newMapCache()
	svc := presets.NewTesting(t, presets.WithServiceOptions(portfolio.WithCache(cache, time.Minute))).Service
	ctx := context.Background()

	list, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, cache.hitCount())

	p, err := svc.CreateProject(ctx, portfolio.CreateProjectRequest{
		Title:       "Site",
		Description: "Portfolio",
		Category:    portfolio.CategoryFullStack,
		Assets:      portfolio.AssetChanges{portfolio.FieldCoverImage: upload(png("cover"))},
	})
	require.NoError(t, err)

	list, err = svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// A cached project keeps its asset references intact
	_, err = svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	got, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CoverImage)
	assert.Equal(t, *p.CoverImage, *got.CoverImage)

	_, err = svc.UpdateProject(ctx, portfolio.UpdateProjectRequest{ID: p.ID, Title: strPtr("Renamed")})
	require.NoError(t, err)
	got, err = svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	list, err = svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, svc.Shutdown(ctx))
}

// pausingRepository holds the next GetProject after its read until released
type pausingRepository struct {
	*memory.Repository
	armed    atomic.Bool
	loaded   chan struct{}
	released chan struct{}
}

func (r *pausingRepository) GetProject(ctx context.Context, id uuid.UUID) (*portfolio.Project, error) {
	p, err := r.Repository.GetProject(ctx, id)
	if r.armed.CompareAndSwap(true, false) {
		close(r.loaded)
		<-r.released
	}
	return p, err
}

func TestCacheFillRacingAnUpdateIsDropped(t *testing.T) {
	repo := &pausingRepository{
		Repository: memory.New(),
		loaded:     make(chan struct{}),
		released:   make(chan struct{}),
	}
	cache := newMapCache()
	env := presets.NewTesting(t, presets.WithServiceOptions(
		portfolio.WithRepository(repo),
		portfolio.WithCache(cache, time.Minute),
	))
	svc := env.Service
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, portfolio.CreateProjectRequest{
		Title:       "Site",
		Description: "Portfolio",
		Category:    portfolio.CategoryFullStack,
		Assets:      portfolio.AssetChanges{portfolio.FieldCoverImage: upload(png("old"))},
	})
	require.NoError(t, err)

	// A reader loads the project and stalls before filling the cache
	repo.armed.Store(true)
	stale := make(chan *portfolio.Project, 1)
	go func() {
		got, err := svc.GetProject(ctx, p.ID)
		assert.NoError(t, err)
		stale <- got
	}()
	<-repo.loaded

	updated, err := svc.UpdateProject(ctx, portfolio.UpdateProjectRequest{
		ID:     p.ID,
		Assets: portfolio.AssetChanges{portfolio.FieldCoverImage: upload(png("new"))},
	})
	require.NoError(t, err)

	close(repo.released)
	got := <-stale
	assert.Equal(t, p.CoverImage.Locator, got.CoverImage.Locator)
	require.NoError(t, svc.Shutdown(ctx))

	got, err = svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.CoverImage.Locator, got.CoverImage.Locator)
	assert.NotEqual(t, p.CoverImage.Locator, got.CoverImage.Locator)
}
