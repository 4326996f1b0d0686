// Package api exposes the portfolio service over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/portfolio-content/pkg/portfolio"
)

// Handler handles HTTP requests for site content, projects and testimonials
type Handler struct {
	service portfolio.Service
}

// NewHandler creates a new handler
func NewHandler(service portfolio.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the API routes. Mutating routes and the asset listing run
// behind writeGuards.
func (h *Handler) Routes(writeGuards ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/content", h.GetSiteContent)
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/{id}", h.GetProject)
	r.Get("/testimonials", h.ListTestimonials)
	r.Get("/testimonials/{id}", h.GetTestimonial)

	r.Group(func(r chi.Router) {
		r.Use(writeGuards...)

		r.Put("/content", h.UpdateSiteContent)

		r.Post("/projects", h.CreateProject)
		r.Put("/projects/{id}", h.UpdateProject)
		r.Delete("/projects/{id}", h.DeleteProject)

		r.Post("/testimonials", h.CreateTestimonial)
		r.Put("/testimonials/{id}", h.UpdateTestimonial)
		r.Delete("/testimonials/{id}", h.DeleteTestimonial)

		r.Get("/assets", h.ListAssets)
	})

	return r
}

func parseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &portfolio.ValidationError{Field: "id", Reason: "invalid id " + raw}
	}
	return id, nil
}

// Site content

// GetSiteContent returns the site content, defaults when none is stored
func (h *Handler) GetSiteContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.GetSiteContent(r.Context())
	if err != nil {
		writeError(w, r, "Failed to get site content", err)
		return
	}
	render.JSON(w, r, toSiteContentResponse(h.service, content))
}

type heroFields struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
	Bio  *string `json:"bio"`
}

// UpdateSiteContent merges text fields and reconciles the hero assets
func (h *Handler) UpdateSiteContent(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, "Failed to parse site content form", err)
		return
	}
	defer f.close(r)

	req := portfolio.UpdateSiteContentRequest{AboutMe: f.text("aboutMe")}

	var hero heroFields
	if ok, err := f.decodeJSON("hero", &hero); err != nil {
		writeError(w, r, "Invalid hero", err)
		return
	} else if ok {
		req.Hero = &portfolio.HeroText{Name: hero.Name, Role: hero.Role, Bio: hero.Bio}
	}

	var proficientIn []string
	if ok, err := f.decodeJSON("proficientIn", &proficientIn); err != nil {
		writeError(w, r, "Invalid proficientIn", err)
		return
	} else if ok {
		req.ProficientIn = &proficientIn
	}

	var links portfolio.SocialLinks
	if ok, err := f.decodeJSON("socialLinks", &links); err != nil {
		writeError(w, r, "Invalid socialLinks", err)
		return
	} else if ok {
		req.SocialLinks = &links
	}

	var contact portfolio.Contact
	if ok, err := f.decodeJSON("contact", &contact); err != nil {
		writeError(w, r, "Invalid contact", err)
		return
	} else if ok {
		req.Contact = &contact
	}

	var stats []portfolio.Stat
	if ok, err := f.decodeJSON("stats", &stats); err != nil {
		writeError(w, r, "Invalid stats", err)
		return
	} else if ok {
		req.Stats = &stats
	}

	if req.Assets, err = f.assetChanges(portfolio.EntityHeroProfile); err != nil {
		writeError(w, r, "Failed to read hero uploads", err)
		return
	}

	content, err := h.service.UpdateSiteContent(r.Context(), req)
	if err != nil {
		writeError(w, r, "Failed to update site content", err)
		return
	}

	slog.Info("Site content updated")
	render.JSON(w, r, toSiteContentResponse(h.service, content))
}

// Projects

// ListProjects returns every project, newest first
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list projects", err)
		return
	}
	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, toProjectResponse(h.service, p))
	}
	render.JSON(w, r, resp)
}

// GetProject returns one project
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, "Invalid project ID", err)
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get project", err)
		return
	}
	render.JSON(w, r, toProjectResponse(h.service, p))
}

// CreateProject creates a project from a multipart form with a required cover image
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, "Failed to parse project form", err)
		return
	}
	defer f.close(r)

	req := portfolio.CreateProjectRequest{
		Title:       strings.TrimSpace(f.textOr("title", "")),
		Description: strings.TrimSpace(f.textOr("description", "")),
		Category:    portfolio.ProjectCategory(strings.TrimSpace(f.textOr("category", ""))),
		LiveURL:     strings.TrimSpace(f.textOr("liveUrl", "")),
		GithubURL:   strings.TrimSpace(f.textOr("githubUrl", "")),
	}
	if stack := f.techStack(); stack != nil {
		req.TechStack = *stack
	}
	if req.Assets, err = f.assetChanges(portfolio.EntityProject); err != nil {
		writeError(w, r, "Failed to read project uploads", err)
		return
	}

	p, err := h.service.CreateProject(r.Context(), req)
	if err != nil {
		writeError(w, r, "Failed to create project", err)
		return
	}

	slog.Info("Project created", "project_id", p.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toProjectResponse(h.service, p))
}

// UpdateProject updates text fields and reconciles cover image and screenshots
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, "Invalid project ID", err)
		return
	}
	f, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, "Failed to parse project form", err)
		return
	}
	defer f.close(r)

	req := portfolio.UpdateProjectRequest{
		ID:          id,
		Title:       f.text("title"),
		Description: f.text("description"),
		TechStack:   f.techStack(),
		LiveURL:     f.text("liveUrl"),
		GithubURL:   f.text("githubUrl"),
	}
	if category := f.text("category"); category != nil && strings.TrimSpace(*category) != "" {
		c := portfolio.ProjectCategory(strings.TrimSpace(*category))
		req.Category = &c
	}
	if req.Assets, err = f.assetChanges(portfolio.EntityProject); err != nil {
		writeError(w, r, "Failed to read project uploads", err)
		return
	}

	p, err := h.service.UpdateProject(r.Context(), req)
	if err != nil {
		writeError(w, r, "Failed to update project", err)
		return
	}

	slog.Info("Project updated", "project_id", p.ID.String())
	render.JSON(w, r, toProjectResponse(h.service, p))
}

// DeleteProject deletes a project and schedules its assets for collection
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, "Invalid project ID", err)
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete project", err)
		return
	}
	slog.Info("Project deleted", "project_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// Testimonials

// ListTestimonials returns every testimonial, newest first
func (h *Handler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	testimonials, err := h.service.ListTestimonials(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list testimonials", err)
		return
	}
	resp := make([]TestimonialResponse, 0, len(testimonials))
	for _, t := range testimonials {
		resp = append(resp, toTestimonialResponse(h.service, t))
	}
	render.JSON(w, r, resp)
}

// GetTestimonial returns one testimonial
func (h *Handler) GetTestimonial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, "Invalid testimonial ID", err)
		return
	}
	t, err := h.service.GetTestimonial(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get testimonial", err)
		return
	}
	render.JSON(w, r, toTestimonialResponse(h.service, t))
}

// CreateTestimonial creates a testimonial with an optional avatar
func (h *Handler) CreateTestimonial(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, "Failed to parse testimonial form", err)
		return
	}
	defer f.close(r)

	rating, err := f.rating()
	if err != nil {
		writeError(w, r, "Invalid rating", err)
		return
	}
	req := portfolio.CreateTestimonialRequest{
		Name:    strings.TrimSpace(f.textOr("name", "")),
		Role:    strings.TrimSpace(f.textOr("role", "")),
		Company: strings.TrimSpace(f.textOr("company", "")),
		Content: strings.TrimSpace(f.textOr("content", "")),
	}
	if rating != nil {
		req.Rating = *rating
	}
	if req.Assets, err = f.assetChanges(portfolio.EntityTestimonial); err != nil {
		writeError(w, r, "Failed to read testimonial uploads", err)
		return
	}

	t, err := h.service.CreateTestimonial(r.Context(), req)
	if err != nil {
		writeError(w, r, "Failed to create testimonial", err)
		return
	}

	slog.Info("Testimonial created", "testimonial_id", t.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toTestimonialResponse(h.service, t))
}

// UpdateTestimonial updates text fields and reconciles the avatar
func (h *Handler) UpdateTestimonial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, "Invalid testimonial ID", err)
		return
	}
	f, err := parseForm(w, r)
	if err != nil {
		writeError(w, r, "Failed to parse testimonial form", err)
		return
	}
	defer f.close(r)

	rating, err := f.rating()
	if err != nil {
		writeError(w, r, "Invalid rating", err)
		return
	}
	req := portfolio.UpdateTestimonialRequest{
		ID:      id,
		Name:    f.text("name"),
		Role:    f.text("role"),
		Company: f.text("company"),
		Content: f.text("content"),
		Rating:  rating,
	}
	if req.Assets, err = f.assetChanges(portfolio.EntityTestimonial); err != nil {
		writeError(w, r, "Failed to read testimonial uploads", err)
		return
	}

	t, err := h.service.UpdateTestimonial(r.Context(), req)
	if err != nil {
		writeError(w, r, "Failed to update testimonial", err)
		return
	}

	slog.Info("Testimonial updated", "testimonial_id", t.ID.String())
	render.JSON(w, r, toTestimonialResponse(h.service, t))
}

// DeleteTestimonial deletes a testimonial and schedules its avatar for collection
func (h *Handler) DeleteTestimonial(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, "Invalid testimonial ID", err)
		return
	}
	if err := h.service.DeleteTestimonial(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete testimonial", err)
		return
	}
	slog.Info("Testimonial deleted", "testimonial_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// ListAssets returns every live asset reference with its resolved URL
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		writeError(w, r, "Failed to list assets", err)
		return
	}
	if assets == nil {
		assets = []portfolio.OwnedAsset{}
	}
	render.JSON(w, r, assets)
}
