package portfolio_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	"github.com/tendant/portfolio-content/pkg/portfolio/presets"
	"github.com/tendant/portfolio-content/pkg/portfolio/repo/memory"
	"github.com/tendant/portfolio-content/pkg/portfolio/storage/fs"
)

type harness struct {
	svc     portfolio.Service
	repo    *memory.Repository
	backend *fs.Backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	env := presets.NewTesting(t)
	return &harness{svc: env.Service, repo: env.Repository, backend: env.Local}
}

func (h *harness) exists(ref portfolio.AssetRef) bool {
	_, err := os.Stat(filepath.Join(h.backend.BaseDir(), ref.Locator))
	return err == nil
}

func (h *harness) fileCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.Walk(h.backend.BaseDir(), func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.svc.Shutdown(context.Background()))
}

func png(name string) portfolio.FileUpload {
	return portfolio.FileUpload{FileName: name, MimeType: "image/png", Size: int64(len(name)), Content: strings.NewReader(name)}
}

func upload(files ...portfolio.FileUpload) portfolio.FieldChange {
	return portfolio.FieldChange{Uploads: files}
}

func strPtr(s string) *string { return &s }

func createProject(t *testing.T, h *harness, screenshots ...portfolio.FileUpload) *portfolio.Project {
	t.Helper()
	assets := portfolio.AssetChanges{portfolio.FieldCoverImage: upload(png("img1"))}
	if len(screenshots) > 0 {
		assets[portfolio.FieldScreenshots] = upload(screenshots...)
	}
	p, err := h.svc.CreateProject(context.Background(), portfolio.CreateProjectRequest{
		Title:       "Portfolio",
		Description: "Personal site",
		Category:    portfolio.CategoryFullStack,
		TechStack:   []string{"Go"},
		Assets:      assets,
	})
	require.NoError(t, err)
	return p
}

func TestServiceCreation(t *testing.T) {
	_, err := portfolio.New()
	assert.Error(t, err)

	_, err = portfolio.New(portfolio.WithRepository(memory.New()))
	assert.Error(t, err)
}

func TestProjectScreenshotScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p := createProject(t, h, png("s1"), png("s2"), png("s3"))
	require.NotNil(t, p.CoverImage)
	require.Len(t, p.Screenshots, 3)
	img1 := *p.CoverImage
	s1, s2, s3 := p.Screenshots[0], p.Screenshots[1], p.Screenshots[2]

	// Clients may echo resolved URLs instead of locators.
	s2URL, err := h.svc.Resolve(s2)
	require.NoError(t, err)
	retained := []string{s2URL, s3.Locator}

	updated, err := h.svc.UpdateProject(ctx, portfolio.UpdateProjectRequest{
		ID: p.ID,
		Assets: portfolio.AssetChanges{
			portfolio.FieldScreenshots: {Uploads: []portfolio.FileUpload{png("s4")}, Retained: &retained},
		},
	})
	require.NoError(t, err)
	h.settle(t)

	require.Len(t, updated.Screenshots, 3)
	assert.Equal(t, s2, updated.Screenshots[0])
	assert.Equal(t, s3, updated.Screenshots[1])
	s4 := updated.Screenshots[2]
	assert.True(t, h.exists(s4))
	assert.False(t, h.exists(s1))
	assert.True(t, h.exists(s2))
	assert.True(t, h.exists(s3))

	assert.Equal(t, img1, *updated.CoverImage)
	assert.True(t, h.exists(img1))

	stored, err := h.svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Screenshots, stored.Screenshots)
}

func TestUpdateWithoutAssetSignalsKeepsEverything(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h, png("s1"), png("s2"))

	updated, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID:    p.ID,
		Title: strPtr("Renamed"),
	})
	require.NoError(t, err)
	h.settle(t)

	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, p.Screenshots, updated.Screenshots)
	assert.Equal(t, 3, h.fileCount(t))
}

func TestSingleFieldReplace(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h)
	old := *p.CoverImage

	updated, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID:     p.ID,
		Assets: portfolio.AssetChanges{portfolio.FieldCoverImage: upload(png("img2"))},
	})
	require.NoError(t, err)
	h.settle(t)

	assert.NotEqual(t, old.Locator, updated.CoverImage.Locator)
	assert.False(t, h.exists(old))
	assert.True(t, h.exists(*updated.CoverImage))
}

func TestRequiredFieldCannotBeCleared(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h)

	_, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID:     p.ID,
		Assets: portfolio.AssetChanges{portfolio.FieldCoverImage: {Clear: true}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portfolio.ErrValidation))
	h.settle(t)
	assert.True(t, h.exists(*p.CoverImage))
}

func TestCreateProjectRequiresCover(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateProject(context.Background(), portfolio.CreateProjectRequest{
		Title:       "No cover",
		Description: "Missing image",
		Category:    portfolio.CategoryFrontend,
		Assets:      portfolio.AssetChanges{portfolio.FieldScreenshots: upload(png("s1"))},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portfolio.ErrValidation))
	assert.Equal(t, 0, h.fileCount(t))
}

func TestInvalidUploadStoresNothing(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h)
	before := h.fileCount(t)

	bad := portfolio.FileUpload{FileName: "cv.pdf", MimeType: "application/pdf", Content: strings.NewReader("pdf")}
	_, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID: p.ID,
		Assets: portfolio.AssetChanges{
			portfolio.FieldCoverImage:  upload(png("ok")),
			portfolio.FieldScreenshots: upload(bad),
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portfolio.ErrValidation))
	h.settle(t)
	assert.Equal(t, before, h.fileCount(t))
}

func TestTooManyScreenshotsRejected(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h)

	var files []portfolio.FileUpload
	for i := 0; i <= portfolio.MaxScreenshots; i++ {
		files = append(files, png("s"))
	}
	_, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID:     p.ID,
		Assets: portfolio.AssetChanges{portfolio.FieldScreenshots: upload(files...)},
	})
	assert.True(t, errors.Is(err, portfolio.ErrValidation))
}

func TestUpdateMissingEntityStoresNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID:     uuid.New(),
		Assets: portfolio.AssetChanges{portfolio.FieldCoverImage: upload(png("img"))},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, portfolio.ErrNotFound))
	assert.Equal(t, 0, h.fileCount(t))
}

func TestEntityWriteFailureDeletesNothing(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h, png("s1"))

	h.repo.FailWrites(errors.New("connection reset"))
	empty := []string{}
	_, err := h.svc.UpdateProject(context.Background(), portfolio.UpdateProjectRequest{
		ID: p.ID,
		Assets: portfolio.AssetChanges{
			portfolio.FieldCoverImage:  upload(png("img2")),
			portfolio.FieldScreenshots: {Retained: &empty},
		},
	})
	require.Error(t, err)
	h.settle(t)

	// Old assets stay, the new cover is leaked
	assert.True(t, h.exists(*p.CoverImage))
	assert.True(t, h.exists(p.Screenshots[0]))
	assert.Equal(t, 3, h.fileCount(t))
}

func TestDeleteProjectCollectsAllAssets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := createProject(t, h, png("s1"), png("s2"))

	require.NoError(t, h.svc.DeleteProject(ctx, p.ID))
	h.settle(t)

	assert.Equal(t, 0, h.fileCount(t))
	_, err := h.svc.GetProject(ctx, p.ID)
	assert.True(t, errors.Is(err, portfolio.ErrNotFound))
}

func TestSiteContentDefaultsAndHeroAssets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	content, err := h.svc.GetSiteContent(ctx)
	require.NoError(t, err)
	assert.Len(t, content.Stats, 4)
	assert.Nil(t, content.Hero.ProfileImage)

	resume := portfolio.FileUpload{FileName: "cv.pdf", MimeType: "application/pdf", Content: strings.NewReader("cv")}
	updated, err := h.svc.UpdateSiteContent(ctx, portfolio.UpdateSiteContentRequest{
		Hero: &portfolio.HeroText{Name: strPtr("Ada")},
		Assets: portfolio.AssetChanges{
			portfolio.FieldProfileImage:   upload(png("me")),
			portfolio.FieldResumeDocument: upload(resume),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Hero.ProfileImage)
	require.NotNil(t, updated.Hero.Resume)
	assert.Equal(t, "Ada", updated.Hero.Name)
	profile, cv := *updated.Hero.ProfileImage, *updated.Hero.Resume

	// Clearing the resume leaves the profile image alone
	cleared, err := h.svc.UpdateSiteContent(ctx, portfolio.UpdateSiteContentRequest{
		Hero:   &portfolio.HeroText{Role: strPtr("Engineer")},
		Assets: portfolio.AssetChanges{portfolio.FieldResumeDocument: {Clear: true}},
	})
	require.NoError(t, err)
	h.settle(t)

	assert.Nil(t, cleared.Hero.Resume)
	assert.Equal(t, profile, *cleared.Hero.ProfileImage)
	assert.Equal(t, "Ada", cleared.Hero.Name)
	assert.Equal(t, "Engineer", cleared.Hero.Role)
	assert.False(t, h.exists(cv))
	assert.True(t, h.exists(profile))
}

func TestResumeRejectsImages(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.UpdateSiteContent(context.Background(), portfolio.UpdateSiteContentRequest{
		Assets: portfolio.AssetChanges{portfolio.FieldResumeDocument: upload(png("not-a-cv"))},
	})
	assert.True(t, errors.Is(err, portfolio.ErrValidation))
}

func TestTestimonialAvatarLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.svc.CreateTestimonial(ctx, portfolio.CreateTestimonialRequest{
		Name: "Grace", Role: "CTO", Company: "Acme", Content: "Great work", Rating: 5,
		Assets: portfolio.AssetChanges{portfolio.FieldAvatar: upload(png("avatar"))},
	})
	require.NoError(t, err)
	require.NotNil(t, created.Avatar)
	avatar := *created.Avatar

	updated, err := h.svc.UpdateTestimonial(ctx, portfolio.UpdateTestimonialRequest{
		ID:     created.ID,
		Assets: portfolio.AssetChanges{portfolio.FieldAvatar: {Clear: true}},
	})
	require.NoError(t, err)
	h.settle(t)

	assert.Nil(t, updated.Avatar)
	assert.False(t, h.exists(avatar))
}

func TestTestimonialValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateTestimonial(context.Background(), portfolio.CreateTestimonialRequest{
		Name: "Grace", Role: "CTO", Company: "Acme", Content: "Great", Rating: 6,
	})
	var ve *portfolio.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "rating", ve.Field)
}

func TestListAssets(t *testing.T) {
	h := newHarness(t)
	p := createProject(t, h, png("s1"))

	assets, err := h.svc.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	for _, a := range assets {
		assert.Equal(t, portfolio.EntityProject, a.Entity)
		assert.Equal(t, p.ID.String(), a.EntityID)
		assert.True(t, strings.HasPrefix(a.URL, "/uploads/"))
	}
}
