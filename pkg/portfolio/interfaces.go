package portfolio

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// UploadParams describes one file handed to a BlobStore
type UploadParams struct {
	MimeType string
	Size     int64
	FileName string
	// Prefix groups object keys, typically the binding's prefix.
	Prefix string
	// Kind restricts the accepted MIME types, empty accepts any allowed type.
	Kind AssetKind
}

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Store validates and writes one file, returning its reference
	Store(ctx context.Context, r io.Reader, params UploadParams) (AssetRef, error)

	// Resolve returns the URL a client can fetch the asset from
	Resolve(ref AssetRef) (string, error)

	// Delete removes the asset. A missing or foreign object is not a failure;
	// it is reported as an error wrapping ErrSkipped.
	Delete(ctx context.Context, ref AssetRef) error

	// Kind returns the backend kind written into references
	Kind() BackendKind
}

// Deleter removes stored assets
type Deleter interface {
	Delete(ctx context.Context, ref AssetRef) error
}

// Repository defines the interface for entity persistence
type Repository interface {
	// Site content singleton
	GetSiteContent(ctx context.Context) (*SiteContent, error)
	SaveSiteContent(ctx context.Context, content *SiteContent) error

	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context) ([]*Project, error)

	// Testimonial operations
	CreateTestimonial(ctx context.Context, testimonial *Testimonial) error
	GetTestimonial(ctx context.Context, id uuid.UUID) (*Testimonial, error)
	UpdateTestimonial(ctx context.Context, testimonial *Testimonial) error
	DeleteTestimonial(ctx context.Context, id uuid.UUID) error
	ListTestimonials(ctx context.Context) ([]*Testimonial, error)
}

// Cache is an optional read-through cache for public entity reads
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Metrics receives asset lifecycle counters
type Metrics interface {
	BlobStored(backend BackendKind)
	UploadRejected(field, reason string)
	OrphanDeleted(backend BackendKind, outcome string)
}

// Orphan deletion outcomes reported to Metrics
const (
	OutcomeDeleted = "deleted"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)
