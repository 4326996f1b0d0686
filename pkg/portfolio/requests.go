package portfolio

import (
	"io"

	"github.com/google/uuid"
)

// FileUpload is one file received for an asset field
type FileUpload struct {
	FileName string
	MimeType string
	// Size is the declared size, zero when unknown.
	Size    int64
	Content io.Reader
}

// FieldChange is what a request asks of one asset field
type FieldChange struct {
	Uploads []FileUpload
	// Clear empties a single-valued field. An upload in the same request wins.
	Clear bool
	// Retained lists the entries of a multi-valued field to keep. Nil keeps
	// everything, an empty slice keeps nothing. Entries may be locators or
	// the URLs they resolved to.
	Retained *[]string
}

// AssetChanges maps binding field names to requested changes
type AssetChanges map[string]FieldChange

// HeroText holds the hero text fields, nil leaves a field unchanged
type HeroText struct {
	Name *string
	Role *string
	Bio  *string
}

// UpdateSiteContentRequest updates the singleton site content
type UpdateSiteContentRequest struct {
	Hero         *HeroText
	AboutMe      *string
	ProficientIn *[]string
	SocialLinks  *SocialLinks
	Contact      *Contact
	Stats        *[]Stat
	Assets       AssetChanges
}

// CreateProjectRequest creates a project; the cover image upload is required
type CreateProjectRequest struct {
	Title       string
	Description string
	TechStack   []string
	Category    ProjectCategory
	LiveURL     string
	GithubURL   string
	Assets      AssetChanges
}

// UpdateProjectRequest updates a project, nil text fields are kept
type UpdateProjectRequest struct {
	ID          uuid.UUID
	Title       *string
	Description *string
	TechStack   *[]string
	Category    *ProjectCategory
	LiveURL     *string
	GithubURL   *string
	Assets      AssetChanges
}

// CreateTestimonialRequest creates a testimonial
type CreateTestimonialRequest struct {
	Name    string
	Role    string
	Company string
	Content string
	Rating  int
	Assets  AssetChanges
}

// UpdateTestimonialRequest updates a testimonial, nil text fields are kept
type UpdateTestimonialRequest struct {
	ID      uuid.UUID
	Name    *string
	Role    *string
	Company *string
	Content *string
	Rating  *int
	Assets  AssetChanges
}

// OwnedAsset is a live reference together with the field holding it
type OwnedAsset struct {
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entityId"`
	Field    string     `json:"field"`
	Ref      AssetRef   `json:"ref"`
	URL      string     `json:"url"`
}
