package portfolio

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the portfolio content backend
type Service interface {
	// Site content operations
	GetSiteContent(ctx context.Context) (*SiteContent, error)
	UpdateSiteContent(ctx context.Context, req UpdateSiteContentRequest) (*SiteContent, error)

	// Project operations
	ListProjects(ctx context.Context) ([]*Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error)
	UpdateProject(ctx context.Context, req UpdateProjectRequest) (*Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error

	// Testimonial operations
	ListTestimonials(ctx context.Context) ([]*Testimonial, error)
	GetTestimonial(ctx context.Context, id uuid.UUID) (*Testimonial, error)
	CreateTestimonial(ctx context.Context, req CreateTestimonialRequest) (*Testimonial, error)
	UpdateTestimonial(ctx context.Context, req UpdateTestimonialRequest) (*Testimonial, error)
	DeleteTestimonial(ctx context.Context, id uuid.UUID) error

	// Asset operations
	Resolve(ref AssetRef) (string, error)
	ListAssets(ctx context.Context) ([]OwnedAsset, error)

	// Shutdown waits for pending orphan deletions or ctx expiry
	Shutdown(ctx context.Context) error
}
