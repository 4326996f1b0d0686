package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/portfolio-content/pkg/portfolio"
)

// Repository implements portfolio.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	content      *portfolio.SiteContent
	projects     map[uuid.UUID]*portfolio.Project
	testimonials map[uuid.UUID]*portfolio.Testimonial

	// failWrites makes every write return this error, for exercising
	// failure paths in tests.
	failWrites error
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		projects:     make(map[uuid.UUID]*portfolio.Project),
		testimonials: make(map[uuid.UUID]*portfolio.Testimonial),
	}
}

// FailWrites makes subsequent writes fail with err; nil restores normal behavior
func (r *Repository) FailWrites(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = err
}

// Site content

func (r *Repository) GetSiteContent(ctx context.Context) (*portfolio.SiteContent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.content == nil {
		return nil, &portfolio.NotFoundError{Entity: portfolio.EntityHeroProfile, ID: "singleton"}
	}
	// Return a copy to prevent external modifications
	return r.content.Clone(), nil
}

func (r *Repository) SaveSiteContent(ctx context.Context, content *portfolio.SiteContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	r.content = content.Clone()
	return nil
}

// Project operations

func (r *Repository) CreateProject(ctx context.Context, project *portfolio.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	if _, exists := r.projects[project.ID]; exists {
		return fmt.Errorf("project %s already exists", project.ID)
	}
	r.projects[project.ID] = project.Clone()
	return nil
}

func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (*portfolio.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, exists := r.projects[id]
	if !exists {
		return nil, &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: id.String()}
	}
	return project.Clone(), nil
}

func (r *Repository) UpdateProject(ctx context.Context, project *portfolio.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	if _, exists := r.projects[project.ID]; !exists {
		return &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: project.ID.String()}
	}
	r.projects[project.ID] = project.Clone()
	return nil
}

func (r *Repository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	if _, exists := r.projects[id]; !exists {
		return &portfolio.NotFoundError{Entity: portfolio.EntityProject, ID: id.String()}
	}
	delete(r.projects, id)
	return nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]*portfolio.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*portfolio.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p.Clone())
	}
	// Newest first
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Testimonial operations

func (r *Repository) CreateTestimonial(ctx context.Context, t *portfolio.Testimonial) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	if _, exists := r.testimonials[t.ID]; exists {
		return fmt.Errorf("testimonial %s already exists", t.ID)
	}
	r.testimonials[t.ID] = t.Clone()
	return nil
}

func (r *Repository) GetTestimonial(ctx context.Context, id uuid.UUID) (*portfolio.Testimonial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.testimonials[id]
	if !exists {
		return nil, &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: id.String()}
	}
	return t.Clone(), nil
}

func (r *Repository) UpdateTestimonial(ctx context.Context, t *portfolio.Testimonial) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	if _, exists := r.testimonials[t.ID]; !exists {
		return &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: t.ID.String()}
	}
	r.testimonials[t.ID] = t.Clone()
	return nil
}

func (r *Repository) DeleteTestimonial(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites != nil {
		return r.failWrites
	}
	if _, exists := r.testimonials[id]; !exists {
		return &portfolio.NotFoundError{Entity: portfolio.EntityTestimonial, ID: id.String()}
	}
	delete(r.testimonials, id)
	return nil
}

func (r *Repository) ListTestimonials(ctx context.Context) ([]*portfolio.Testimonial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*portfolio.Testimonial, 0, len(r.testimonials))
	for _, t := range r.testimonials {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ portfolio.Repository = (*Repository)(nil)
