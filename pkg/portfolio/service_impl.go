package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCacheTTL is how long cached public reads stay valid
const DefaultCacheTTL = 5 * time.Minute

const (
	cacheKeySiteContent  = "portfolio:content"
	cacheKeyProjects     = "portfolio:projects"
	cacheKeyTestimonials = "portfolio:testimonials"
)

func projectCacheKey(id uuid.UUID) string     { return "portfolio:project:" + id.String() }
func testimonialCacheKey(id uuid.UUID) string { return "portfolio:testimonial:" + id.String() }

// service implements the Service interface
type service struct {
	repository Repository
	stores     *Stores
	collector  *Collector
	cache      Cache
	cacheTTL   time.Duration
	metrics    Metrics
	now        func() time.Time

	// cacheMu orders cache fills against invalidation. A key's generation
	// moves on every invalidation; a fill loaded under an older generation
	// is dropped.
	cacheMu  sync.Mutex
	cacheGen map[string]uint64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithStores sets the storage backends
func WithStores(stores *Stores) Option {
	return func(s *service) {
		s.stores = stores
	}
}

// WithCollector replaces the default orphan collector
func WithCollector(c *Collector) Option {
	return func(s *service) {
		s.collector = c
	}
}

// WithCache enables the read cache
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *service) {
		if c != nil {
			s.cache = c
		}
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		cache:    NoopCache{},
		cacheTTL: DefaultCacheTTL,
		metrics:  NoopMetrics{},
		now:      func() time.Time { return time.Now().UTC() },
		cacheGen: make(map[string]uint64),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.stores == nil {
		return nil, fmt.Errorf("storage backends are required")
	}
	if s.collector == nil {
		s.collector = NewCollector(s.stores, WithCollectorMetrics(s.metrics))
	}

	return s, nil
}

// Site content operations

func (s *service) GetSiteContent(ctx context.Context) (*SiteContent, error) {
	return cached(ctx, s, cacheKeySiteContent, s.loadSiteContent)
}

func (s *service) loadSiteContent(ctx context.Context) (*SiteContent, error) {
	content, err := s.repository.GetSiteContent(ctx)
	if errors.Is(err, ErrNotFound) {
		return DefaultSiteContent(), nil
	}
	if err != nil {
		return nil, &EntityError{Entity: EntityHeroProfile, ID: "singleton", Op: "get", Err: err}
	}
	return content, nil
}

func (s *service) UpdateSiteContent(ctx context.Context, req UpdateSiteContentRequest) (*SiteContent, error) {
	existing, err := s.loadSiteContent(ctx)
	if err != nil {
		return nil, err
	}

	next := existing.Clone()
	if h := req.Hero; h != nil {
		setIf(&next.Hero.Name, h.Name)
		setIf(&next.Hero.Role, h.Role)
		setIf(&next.Hero.Bio, h.Bio)
	}
	setIf(&next.AboutMe, req.AboutMe)
	if req.ProficientIn != nil {
		next.ProficientIn = *req.ProficientIn
	}
	if req.SocialLinks != nil {
		next.SocialLinks = *req.SocialLinks
	}
	if req.Contact != nil {
		next.Contact = *req.Contact
	}
	if req.Stats != nil {
		next.Stats = *req.Stats
	}
	next.UpdatedAt = s.now()

	err = s.applyAssets(ctx, EntityHeroProfile, "singleton", next, req.Assets, false, func() error {
		return s.repository.SaveSiteContent(ctx, next)
	}, cacheKeySiteContent)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Project operations

func (s *service) ListProjects(ctx context.Context) ([]*Project, error) {
	return cached(ctx, s, cacheKeyProjects, func(ctx context.Context) ([]*Project, error) {
		projects, err := s.repository.ListProjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		return projects, nil
	})
}

func (s *service) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return cached(ctx, s, projectCacheKey(id), func(ctx context.Context) (*Project, error) {
		return s.repository.GetProject(ctx, id)
	})
}

func (s *service) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	if err := validateProjectText(req.Title, req.Description, req.Category); err != nil {
		return nil, err
	}

	now := s.now()
	project := &Project{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		TechStack:   req.TechStack,
		Category:    req.Category,
		LiveURL:     req.LiveURL,
		GithubURL:   req.GithubURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.applyAssets(ctx, EntityProject, project.ID.String(), project, req.Assets, true, func() error {
		return s.repository.CreateProject(ctx, project)
	}, cacheKeyProjects)
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *service) UpdateProject(ctx context.Context, req UpdateProjectRequest) (*Project, error) {
	existing, err := s.repository.GetProject(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	next := existing.Clone()
	setIf(&next.Title, req.Title)
	setIf(&next.Description, req.Description)
	setIf(&next.LiveURL, req.LiveURL)
	setIf(&next.GithubURL, req.GithubURL)
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.TechStack != nil {
		next.TechStack = *req.TechStack
	}
	if err := validateProjectText(next.Title, next.Description, next.Category); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()

	err = s.applyAssets(ctx, EntityProject, next.ID.String(), next, req.Assets, false, func() error {
		return s.repository.UpdateProject(ctx, next)
	}, cacheKeyProjects, projectCacheKey(next.ID))
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repository.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repository.DeleteProject(ctx, id); err != nil {
		return &EntityError{Entity: EntityProject, ID: id.String(), Op: "delete", Err: err}
	}
	s.invalidate(ctx, cacheKeyProjects, projectCacheKey(id))
	s.collector.Collect(ctx, AssetsOf(EntityProject, existing))
	return nil
}

// Testimonial operations

func (s *service) ListTestimonials(ctx context.Context) ([]*Testimonial, error) {
	return cached(ctx, s, cacheKeyTestimonials, func(ctx context.Context) ([]*Testimonial, error) {
		testimonials, err := s.repository.ListTestimonials(ctx)
		if err != nil {
			return nil, fmt.Errorf("list testimonials: %w", err)
		}
		return testimonials, nil
	})
}

func (s *service) GetTestimonial(ctx context.Context, id uuid.UUID) (*Testimonial, error) {
	return cached(ctx, s, testimonialCacheKey(id), func(ctx context.Context) (*Testimonial, error) {
		return s.repository.GetTestimonial(ctx, id)
	})
}

func (s *service) CreateTestimonial(ctx context.Context, req CreateTestimonialRequest) (*Testimonial, error) {
	t := &Testimonial{
		ID:      uuid.New(),
		Name:    strings.TrimSpace(req.Name),
		Role:    strings.TrimSpace(req.Role),
		Company: strings.TrimSpace(req.Company),
		Content: strings.TrimSpace(req.Content),
		Rating:  req.Rating,
	}
	if err := validateTestimonialText(t); err != nil {
		return nil, err
	}
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt

	err := s.applyAssets(ctx, EntityTestimonial, t.ID.String(), t, req.Assets, true, func() error {
		return s.repository.CreateTestimonial(ctx, t)
	}, cacheKeyTestimonials)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) UpdateTestimonial(ctx context.Context, req UpdateTestimonialRequest) (*Testimonial, error) {
	existing, err := s.repository.GetTestimonial(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	next := existing.Clone()
	setIf(&next.Name, req.Name)
	setIf(&next.Role, req.Role)
	setIf(&next.Company, req.Company)
	setIf(&next.Content, req.Content)
	if req.Rating != nil {
		next.Rating = *req.Rating
	}
	if err := validateTestimonialText(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()

	err = s.applyAssets(ctx, EntityTestimonial, next.ID.String(), next, req.Assets, false, func() error {
		return s.repository.UpdateTestimonial(ctx, next)
	}, cacheKeyTestimonials, testimonialCacheKey(next.ID))
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *service) DeleteTestimonial(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repository.GetTestimonial(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repository.DeleteTestimonial(ctx, id); err != nil {
		return &EntityError{Entity: EntityTestimonial, ID: id.String(), Op: "delete", Err: err}
	}
	s.invalidate(ctx, cacheKeyTestimonials, testimonialCacheKey(id))
	s.collector.Collect(ctx, AssetsOf(EntityTestimonial, existing))
	return nil
}

// Asset operations

func (s *service) Resolve(ref AssetRef) (string, error) {
	return s.stores.Resolve(ref)
}

func (s *service) ListAssets(ctx context.Context) ([]OwnedAsset, error) {
	var out []OwnedAsset
	add := func(entity EntityType, id string, h AssetHolder) {
		for _, b := range BindingsFor(entity) {
			var held []AssetRef
			if b.Cardinality == CardinalitySingle {
				if ref := h.Asset(b.Field); ref != nil && !ref.IsZero() {
					held = append(held, *ref)
				}
			} else {
				held = h.AssetList(b.Field)
			}
			for _, ref := range held {
				u, err := s.stores.Resolve(ref)
				if err != nil {
					slog.Warn("Failed to resolve asset URL", "entity", entity, "id", id, "field", b.Field, "locator", ref.Locator, "error", err)
				}
				out = append(out, OwnedAsset{Entity: entity, EntityID: id, Field: b.Field, Ref: ref, URL: u})
			}
		}
	}

	content, err := s.loadSiteContent(ctx)
	if err != nil {
		return nil, err
	}
	add(EntityHeroProfile, "singleton", content)

	projects, err := s.repository.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		add(EntityProject, p.ID.String(), p)
	}

	testimonials, err := s.repository.ListTestimonials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	for _, t := range testimonials {
		add(EntityTestimonial, t.ID.String(), t)
	}
	return out, nil
}

func (s *service) Shutdown(ctx context.Context) error {
	if err := s.collector.WaitContext(ctx); err != nil {
		return fmt.Errorf("waiting for orphan collection: %w", err)
	}
	return nil
}

// applyAssets runs the asset update flow for one entity: validate every
// upload, store them, reconcile each bound field into h, persist once and
// hand the removed references to the collector. Nothing is stored when
// validation fails and nothing is deleted unless persist succeeds.
func (s *service) applyAssets(ctx context.Context, entity EntityType, id string, h AssetHolder, changes AssetChanges, creating bool, persist func() error, cacheKeys ...string) error {
	bindings := BindingsFor(entity)
	if err := s.validateAssets(bindings, h, changes, creating); err != nil {
		return err
	}

	stored, err := s.storeUploads(ctx, bindings, changes)
	if err != nil {
		return err
	}

	var removed []AssetRef
	for _, b := range bindings {
		change := changes[b.Field]
		newly := stored[b.Field]
		switch b.Cardinality {
		case CardinalitySingle:
			signal := SignalOmitted
			if len(newly) > 0 {
				signal = SignalUpload
			} else if change.Clear {
				signal = SignalClear
			}
			final, dropped := ReconcileSingle(h.Asset(b.Field), signal, newly)
			h.SetAsset(b.Field, final)
			removed = append(removed, dropped...)
		case CardinalityMulti:
			existing := h.AssetList(b.Field)
			var retained *[]string
			if change.Retained != nil {
				matched := s.stores.MatchRetained(existing, *change.Retained)
				retained = &matched
			}
			final, dropped := ReconcileList(existing, retained, newly)
			h.SetAssetList(b.Field, final)
			removed = append(removed, dropped...)
		}
	}

	if err := persist(); err != nil {
		var leaked []AssetRef
		for _, refs := range stored {
			leaked = append(leaked, refs...)
		}
		if len(leaked) > 0 {
			slog.Warn("Entity write failed after upload, stored assets left unreferenced", "entity", entity, "id", id, "assets", leaked)
		}
		op := "update"
		if creating {
			op = "create"
		}
		return &EntityError{Entity: entity, ID: id, Op: op, Err: err}
	}

	s.invalidate(ctx, cacheKeys...)
	s.collector.Collect(ctx, removed)
	return nil
}

func (s *service) validateAssets(bindings []FieldBinding, h AssetHolder, changes AssetChanges, creating bool) error {
	known := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		known[b.Field] = struct{}{}
		change := changes[b.Field]

		if len(change.Uploads) > b.maxFiles() {
			s.metrics.UploadRejected(b.Field, "too_many_files")
			return invalid(b.FilePart, "at most %d file(s) allowed", b.maxFiles())
		}
		for _, up := range change.Uploads {
			if !b.Kind.Accepts(up.MimeType) {
				s.metrics.UploadRejected(b.Field, "mime_type")
				return invalid(b.FilePart, "file type %q is not allowed", up.MimeType)
			}
			if up.Size > MaxUploadSize {
				s.metrics.UploadRejected(b.Field, "size")
				return invalid(b.FilePart, "file exceeds %d bytes", MaxUploadSize)
			}
		}

		if b.Required && len(change.Uploads) == 0 {
			if creating {
				return invalid(b.FilePart, "file is required")
			}
			if change.Clear {
				return invalid(b.ControlField, "cannot be cleared")
			}
			if ref := h.Asset(b.Field); b.Cardinality == CardinalitySingle && (ref == nil || ref.IsZero()) {
				return invalid(b.FilePart, "file is required")
			}
		}
	}
	for field := range changes {
		if _, ok := known[field]; !ok {
			return invalid(field, "not an asset field")
		}
	}
	return nil
}

func (s *service) storeUploads(ctx context.Context, bindings []FieldBinding, changes AssetChanges) (map[string][]AssetRef, error) {
	writer := s.stores.Writer()
	stored := make(map[string][]AssetRef)
	var all []AssetRef

	for _, b := range bindings {
		for _, up := range changes[b.Field].Uploads {
			ref, err := writer.Store(ctx, up.Content, UploadParams{
				MimeType: up.MimeType,
				Size:     up.Size,
				FileName: up.FileName,
				Prefix:   b.Prefix,
				Kind:     b.Kind,
			})
			if err != nil {
				// Nothing references the files stored so far in this request.
				s.collector.Collect(ctx, all)
				if errors.Is(err, ErrValidation) {
					s.metrics.UploadRejected(b.Field, "store_validation")
					return nil, err
				}
				var se *StorageError
				if errors.As(err, &se) {
					return nil, err
				}
				return nil, &StorageError{Backend: string(writer.Kind()), Key: up.FileName, Op: "store", Err: err}
			}
			s.metrics.BlobStored(ref.Backend)
			stored[b.Field] = append(stored[b.Field], ref)
			all = append(all, ref)
		}
	}
	return stored, nil
}

func (s *service) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for _, k := range keys {
		s.cacheGen[k]++
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		slog.Warn("Failed to invalidate cache", "keys", keys, "error", err)
	}
}

func cached[T any](ctx context.Context, s *service, key string, load func(context.Context) (T, error)) (T, error) {
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		slog.Warn("Discarding undecodable cache entry", "key", key)
	}

	s.cacheMu.Lock()
	gen := s.cacheGen[key]
	s.cacheMu.Unlock()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheGen[key] != gen {
		slog.Debug("Dropping cache fill superseded by a write", "key", key)
		return v, nil
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
	return v, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func validateProjectText(title, description string, category ProjectCategory) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title", "is required")
	}
	if strings.TrimSpace(description) == "" {
		return invalid("description", "is required")
	}
	if !category.Valid() {
		return invalid("category", "must be one of %q, %q, %q", CategoryFullStack, CategoryFrontend, CategoryUIUX)
	}
	return nil
}

func validateTestimonialText(t *Testimonial) error {
	switch {
	case t.Name == "":
		return invalid("name", "is required")
	case t.Role == "":
		return invalid("role", "is required")
	case t.Company == "":
		return invalid("company", "is required")
	case t.Content == "":
		return invalid("content", "is required")
	case t.Rating < 1 || t.Rating > 5:
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}
