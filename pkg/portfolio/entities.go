package portfolio

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names an entity that owns assets
type EntityType string

const (
	EntityHeroProfile EntityType = "hero_profile"
	EntityProject     EntityType = "project"
	EntityTestimonial EntityType = "testimonial"
)

// Hero is the top section of the site. It is the HeroProfile entity and
// owns the profile image and the resume document.
type Hero struct {
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio"`
	ProfileImage *AssetRef `json:"profileImage,omitempty"`
	Resume       *AssetRef `json:"resume,omitempty"`
}

type SocialLinks struct {
	Github   string `json:"github"`
	Linkedin string `json:"linkedin"`
	Twitter  string `json:"twitter"`
	Facebook string `json:"facebook"`
}

type Contact struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type Stat struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  string `json:"icon"`
}

// SiteContent is the singleton document holding the hero profile and
// the plain text sections of the site.
type SiteContent struct {
	Hero         Hero        `json:"hero"`
	AboutMe      string      `json:"aboutMe"`
	ProficientIn []string    `json:"proficientIn"`
	SocialLinks  SocialLinks `json:"socialLinks"`
	Contact      Contact     `json:"contact"`
	Stats        []Stat      `json:"stats"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// DefaultSiteContent returns the content served before anything is saved
func DefaultSiteContent() *SiteContent {
	return &SiteContent{
		ProficientIn: []string{},
		Stats: []Stat{
			{ID: "1", Label: "Years Experience", Value: "0", Icon: "Briefcase"},
			{ID: "2", Label: "Projects Completed", Value: "0", Icon: "CheckCircle"},
			{ID: "3", Label: "Clients Served", Value: "0", Icon: "Users"},
			{ID: "4", Label: "Awards Won", Value: "0", Icon: "Award"},
		},
	}
}

// ProjectCategory classifies a project
type ProjectCategory string

const (
	CategoryFullStack ProjectCategory = "Full Stack"
	CategoryFrontend  ProjectCategory = "Frontend"
	CategoryUIUX      ProjectCategory = "UI/UX"
)

// Valid reports whether c is one of the known categories
func (c ProjectCategory) Valid() bool {
	switch c {
	case CategoryFullStack, CategoryFrontend, CategoryUIUX:
		return true
	}
	return false
}

// Project is a portfolio entry with a required cover image and an
// ordered list of screenshots.
type Project struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CoverImage  *AssetRef       `json:"coverImage,omitempty"`
	TechStack   []string        `json:"techStack"`
	Category    ProjectCategory `json:"category"`
	LiveURL     string          `json:"liveUrl"`
	GithubURL   string          `json:"githubUrl"`
	Screenshots []AssetRef      `json:"screenshots"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Testimonial is a client quote with an optional avatar
type Testimonial struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Company   string    `json:"company"`
	Content   string    `json:"content"`
	Avatar    *AssetRef `json:"avatar,omitempty"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func cloneRef(r *AssetRef) *AssetRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Clone returns a deep copy
func (c *SiteContent) Clone() *SiteContent {
	out := *c
	out.Hero.ProfileImage = cloneRef(c.Hero.ProfileImage)
	out.Hero.Resume = cloneRef(c.Hero.Resume)
	out.ProficientIn = append([]string(nil), c.ProficientIn...)
	out.Stats = append([]Stat(nil), c.Stats...)
	return &out
}

// Clone returns a deep copy
func (p *Project) Clone() *Project {
	out := *p
	out.CoverImage = cloneRef(p.CoverImage)
	out.TechStack = append([]string(nil), p.TechStack...)
	out.Screenshots = append([]AssetRef(nil), p.Screenshots...)
	return &out
}

// Clone returns a deep copy
func (t *Testimonial) Clone() *Testimonial {
	out := *t
	out.Avatar = cloneRef(t.Avatar)
	return &out
}
