// Package presets builds ready-to-use portfolio services for local
// development and tests.
package presets

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	memoryrepo "github.com/tendant/portfolio-content/pkg/portfolio/repo/memory"
	fsstorage "github.com/tendant/portfolio-content/pkg/portfolio/storage/fs"
)

// Development is a service backed by memory and a local upload directory
type Development struct {
	Service portfolio.Service
	Local   *fsstorage.Backend
}

type devConfig struct {
	storageDir string
	fixtures   bool
}

// DevelopmentOption configures NewDevelopment
type DevelopmentOption func(*devConfig)

// WithStorageDir sets the upload directory, default ./dev-data
func WithStorageDir(dir string) DevelopmentOption {
	return func(c *devConfig) {
		c.storageDir = dir
	}
}

// WithSampleData seeds site content, a project and a testimonial whose
// images are hosted elsewhere
func WithSampleData() DevelopmentOption {
	return func(c *devConfig) {
		c.fixtures = true
	}
}

// NewDevelopment creates a service configured for local development.
//
// The returned cleanup removes the upload directory.
//
//	dev, cleanup, err := presets.NewDevelopment(presets.WithSampleData())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (*Development, func(), error) {
	cfg := &devConfig{storageDir: "./dev-data"}
	for _, opt := range opts {
		opt(cfg)
	}

	repo := memoryrepo.New()
	local, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.storageDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := newService(repo, local)
	if err != nil {
		return nil, nil, err
	}

	if cfg.fixtures {
		if err := Seed(context.Background(), repo); err != nil {
			return nil, nil, fmt.Errorf("failed to seed sample data: %w", err)
		}
	}

	cleanup := func() {
		_ = svc.Shutdown(context.Background())
		os.RemoveAll(cfg.storageDir)
	}
	return &Development{Service: svc, Local: local}, cleanup, nil
}

// Testing is an isolated service with direct access to its fakes
type Testing struct {
	Service    portfolio.Service
	Repository *memoryrepo.Repository
	Local      *fsstorage.Backend
}

type testConfig struct {
	fixtures bool
	options  []portfolio.Option
}

// TestingOption configures NewTesting
type TestingOption func(*testConfig)

// WithFixtures seeds the sample data used by WithSampleData
func WithFixtures() TestingOption {
	return func(c *testConfig) {
		c.fixtures = true
	}
}

// WithServiceOptions passes extra options to portfolio.New
func WithServiceOptions(opts ...portfolio.Option) TestingOption {
	return func(c *testConfig) {
		c.options = append(c.options, opts...)
	}
}

// NewTesting creates a service for unit tests: a memory repository and a
// filesystem backend under t.TempDir(). Pending orphan deletions are
// awaited when the test completes.
func NewTesting(t testing.TB, opts ...TestingOption) *Testing {
	t.Helper()
	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	repo := memoryrepo.New()
	local, err := fsstorage.New(fsstorage.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}

	svc, err := newService(repo, local, cfg.options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	if cfg.fixtures {
		if err := Seed(context.Background(), repo); err != nil {
			t.Fatalf("failed to seed fixtures: %v", err)
		}
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &Testing{Service: svc, Repository: repo, Local: local}
}

func newService(repo portfolio.Repository, local *fsstorage.Backend, extra ...portfolio.Option) (portfolio.Service, error) {
	stores, err := portfolio.NewStores(portfolio.BackendLocal, local)
	if err != nil {
		return nil, err
	}
	options := append([]portfolio.Option{
		portfolio.WithRepository(repo),
		portfolio.WithStores(stores),
	}, extra...)

	svc, err := portfolio.New(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

// Sample data identifiers
var (
	SampleProjectID     = uuid.MustParse("5a7c1e0e-3b7e-4d8e-9a51-0f4f6c2b9d10")
	SampleTestimonialID = uuid.MustParse("8d2f4b6a-1c3e-4f5a-b7d9-2e4c6a8b0f12")
)

// Seed writes sample entities straight to repo, skipping ones already
// present. Their images are remote URLs the service never owns.
func Seed(ctx context.Context, repo portfolio.Repository) error {
	now := time.Now().UTC()

	content := portfolio.DefaultSiteContent()
	content.Hero.Name = "Alex Doe"
	content.Hero.Role = "Full Stack Developer"
	content.Hero.Bio = "I build web applications."
	content.Hero.ProfileImage = ref("https://picsum.photos/seed/profile/400/400")
	content.AboutMe = "Developer with a focus on clean interfaces."
	content.ProficientIn = []string{"Go", "TypeScript", "PostgreSQL"}
	content.UpdatedAt = now
	if err := repo.SaveSiteContent(ctx, content); err != nil {
		return err
	}

	project := &portfolio.Project{
		ID:          SampleProjectID,
		Title:       "Portfolio Site",
		Description: "Personal portfolio with a content backend.",
		TechStack:   []string{"Go", "React"},
		Category:    portfolio.CategoryFullStack,
		CoverImage:  ref("https://picsum.photos/seed/cover/800/600"),
		Screenshots: []portfolio.AssetRef{
			*ref("https://picsum.photos/seed/shot1/800/600"),
			*ref("https://picsum.photos/seed/shot2/800/600"),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := repo.GetProject(ctx, SampleProjectID); err == nil {
		return nil
	}
	if err := repo.CreateProject(ctx, project); err != nil {
		return err
	}

	return repo.CreateTestimonial(ctx, &portfolio.Testimonial{
		ID:        SampleTestimonialID,
		Name:      "Sam Lee",
		Role:      "Product Manager",
		Company:   "Acme",
		Content:   "Delivered on time and beyond expectations.",
		Avatar:    ref("https://picsum.photos/seed/avatar/200/200"),
		Rating:    5,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func ref(url string) *portfolio.AssetRef {
	r := portfolio.NewAssetRef(url)
	return &r
}
