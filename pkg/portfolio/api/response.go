package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/portfolio-content/pkg/portfolio"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// HeroResponse is the hero section with assets resolved to URLs
type HeroResponse struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profileImage"`
	ResumeURL    string `json:"resumeUrl"`
}

// SiteContentResponse is the response body for the site content singleton
type SiteContentResponse struct {
	Hero         HeroResponse          `json:"hero"`
	AboutMe      string                `json:"aboutMe"`
	ProficientIn []string              `json:"proficientIn"`
	SocialLinks  portfolio.SocialLinks `json:"socialLinks"`
	Contact      portfolio.Contact     `json:"contact"`
	Stats        []portfolio.Stat      `json:"stats"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ProjectResponse is the response body for a project
type ProjectResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	TechStack   []string  `json:"techStack"`
	Category    string    `json:"category"`
	LiveURL     string    `json:"liveUrl"`
	GithubURL   string    `json:"githubUrl"`
	Screenshots []string  `json:"screenshots"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TestimonialResponse is the response body for a testimonial
type TestimonialResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Company   string    `json:"company"`
	Content   string    `json:"content"`
	Avatar    string    `json:"avatar"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// resolver turns references into URLs for responses
type resolver interface {
	Resolve(ref portfolio.AssetRef) (string, error)
}

func resolveURL(res resolver, ref *portfolio.AssetRef) string {
	if ref == nil || ref.IsZero() {
		return ""
	}
	url, err := res.Resolve(*ref)
	if err != nil {
		slog.Warn("Failed to resolve asset", "ref", ref.String(), "error", err)
		return ""
	}
	return url
}

func toSiteContentResponse(res resolver, c *portfolio.SiteContent) SiteContentResponse {
	proficientIn := c.ProficientIn
	if proficientIn == nil {
		proficientIn = []string{}
	}
	stats := c.Stats
	if stats == nil {
		stats = []portfolio.Stat{}
	}
	return SiteContentResponse{
		Hero: HeroResponse{
			Name:         c.Hero.Name,
			Role:         c.Hero.Role,
			Bio:          c.Hero.Bio,
			ProfileImage: resolveURL(res, c.Hero.ProfileImage),
			ResumeURL:    resolveURL(res, c.Hero.Resume),
		},
		AboutMe:      c.AboutMe,
		ProficientIn: proficientIn,
		SocialLinks:  c.SocialLinks,
		Contact:      c.Contact,
		Stats:        stats,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toProjectResponse(res resolver, p *portfolio.Project) ProjectResponse {
	screenshots := make([]string, 0, len(p.Screenshots))
	for i := range p.Screenshots {
		if url := resolveURL(res, &p.Screenshots[i]); url != "" {
			screenshots = append(screenshots, url)
		}
	}
	techStack := p.TechStack
	if techStack == nil {
		techStack = []string{}
	}
	return ProjectResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Image:       resolveURL(res, p.CoverImage),
		TechStack:   techStack,
		Category:    string(p.Category),
		LiveURL:     p.LiveURL,
		GithubURL:   p.GithubURL,
		Screenshots: screenshots,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toTestimonialResponse(res resolver, t *portfolio.Testimonial) TestimonialResponse {
	return TestimonialResponse{
		ID:        t.ID.String(),
		Name:      t.Name,
		Role:      t.Role,
		Company:   t.Company,
		Content:   t.Content,
		Avatar:    resolveURL(res, t.Avatar),
		Rating:    t.Rating,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var (
		storageErr *portfolio.StorageError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, portfolio.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, portfolio.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &storageErr) && storageErr.Op == "store":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	body := ErrorResponse{Error: err.Error()}
	switch {
	case status >= http.StatusInternalServerError:
		slog.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			body.Error = http.StatusText(status)
		}
	default:
		slog.Warn(msg, "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}
