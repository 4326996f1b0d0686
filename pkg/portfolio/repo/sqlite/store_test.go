package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/portfolio-content/pkg/portfolio"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	store, err := Open(path)
	require.NoError(t, err)

	p := &portfolio.Project{ID: uuid.New(), Title: "t", Description: "d", Category: portfolio.CategoryUIUX}
	require.NoError(t, store.CreateProject(context.Background(), p))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.GetProject(context.Background(), p.ID)
	assert.NoError(t, err)
}

func TestSiteContentUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetSiteContent(ctx)
	assert.True(t, errors.Is(err, portfolio.ErrNotFound))

	content := portfolio.DefaultSiteContent()
	content.Hero.Resume = &portfolio.AssetRef{Locator: "portfolio/resume/cv.pdf", Backend: portfolio.BackendLocal}
	require.NoError(t, store.SaveSiteContent(ctx, content))

	content.AboutMe = "Hello"
	require.NoError(t, store.SaveSiteContent(ctx, content))

	got, err := store.GetSiteContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.AboutMe)
	assert.Equal(t, content.Hero.Resume, got.Hero.Resume)
	assert.Len(t, got.Stats, 4)
}

func TestProjectLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	p := &portfolio.Project{
		ID:          uuid.New(),
		Title:       "Site",
		Description: "Portfolio",
		Category:    portfolio.CategoryFrontend,
		TechStack:   []string{"Go"},
		CoverImage:  &portfolio.AssetRef{Locator: "portfolio/projects/c.png", Backend: portfolio.BackendLocal},
		Screenshots: []portfolio.AssetRef{
			{Locator: "https://cdn.example.com/s1.png", Backend: portfolio.BackendRemote},
			{Locator: "portfolio/projects/s2.png", Backend: portfolio.BackendLocal},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.CreateProject(ctx, p))
	assert.Error(t, store.CreateProject(ctx, p))

	got, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.TechStack, got.TechStack)
	assert.Equal(t, p.CoverImage, got.CoverImage)
	assert.Equal(t, p.Screenshots, got.Screenshots)
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

	p.CoverImage = nil
	p.Screenshots = p.Screenshots[1:]
	require.NoError(t, store.UpdateProject(ctx, p))
	got, err = store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CoverImage)
	assert.Equal(t, p.Screenshots, got.Screenshots)

	require.NoError(t, store.DeleteProject(ctx, p.ID))
	_, err = store.GetProject(ctx, p.ID)
	assert.True(t, errors.Is(err, portfolio.ErrNotFound))
	assert.True(t, errors.Is(store.UpdateProject(ctx, p), portfolio.ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, name := range []string{"first", "second", "third"} {
		tm := &portfolio.Testimonial{
			ID: uuid.New(), Name: name, Role: "r", Company: "c", Content: "x", Rating: 4,
			CreatedAt: base.Add(time.Duration(i) * time.Second), UpdatedAt: base,
		}
		require.NoError(t, store.CreateTestimonial(ctx, tm))
	}

	list, err := store.ListTestimonials(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Name)
	assert.Equal(t, "first", list[2].Name)
}

func TestTestimonialAvatar(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tm := &portfolio.Testimonial{ID: uuid.New(), Name: "n", Role: "r", Company: "c", Content: "x", Rating: 3}
	require.NoError(t, store.CreateTestimonial(ctx, tm))

	got, err := store.GetTestimonial(ctx, tm.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Avatar)

	tm.Avatar = &portfolio.AssetRef{Locator: "portfolio/testimonials/a.webp", Backend: portfolio.BackendLocal}
	require.NoError(t, store.UpdateTestimonial(ctx, tm))
	got, err = store.GetTestimonial(ctx, tm.ID)
	require.NoError(t, err)
	assert.Equal(t, tm.Avatar, got.Avatar)

	require.NoError(t, store.DeleteTestimonial(ctx, tm.ID))
	assert.True(t, errors.Is(store.DeleteTestimonial(ctx, tm.ID), portfolio.ErrNotFound))
}
