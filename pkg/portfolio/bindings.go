package portfolio

// Cardinality is the number of assets a field can hold
type Cardinality string

const (
	CardinalitySingle Cardinality = "single"
	CardinalityMulti  Cardinality = "multi"
)

// Field names of asset-bearing fields
const (
	FieldProfileImage   = "profileImage"
	FieldResumeDocument = "resumeDocument"
	FieldCoverImage     = "coverImage"
	FieldScreenshots    = "screenshots"
	FieldAvatar         = "avatar"
)

// MaxScreenshots caps the number of files accepted in one screenshots upload
const MaxScreenshots = 10

// FieldBinding declares how one entity field maps to stored assets and
// to the multipart parts that modify it.
type FieldBinding struct {
	Entity      EntityType
	Field       string
	Cardinality Cardinality
	Required    bool
	Kind        AssetKind
	// FilePart is the multipart file part carrying new uploads.
	FilePart string
	// ControlField is the text part that clears a single field or lists
	// the retained locators of a multi field.
	ControlField string
	// MaxFiles bounds uploads per request, zero means one for single fields.
	MaxFiles int
	// Prefix groups object keys in the backend.
	Prefix string
}

// Bindings is the fixed table of asset-bearing fields
var Bindings = []FieldBinding{
	{
		Entity:       EntityHeroProfile,
		Field:        FieldProfileImage,
		Cardinality:  CardinalitySingle,
		Kind:         AssetKindImage,
		FilePart:     "profileImage",
		ControlField: "profileImage",
		Prefix:       "hero",
	},
	{
		Entity:       EntityHeroProfile,
		Field:        FieldResumeDocument,
		Cardinality:  CardinalitySingle,
		Kind:         AssetKindDocument,
		FilePart:     "resume",
		ControlField: "resumeUrl",
		Prefix:       "resume",
	},
	{
		Entity:       EntityProject,
		Field:        FieldCoverImage,
		Cardinality:  CardinalitySingle,
		Required:     true,
		Kind:         AssetKindImage,
		FilePart:     "image",
		ControlField: "image",
		Prefix:       "projects",
	},
	{
		Entity:       EntityProject,
		Field:        FieldScreenshots,
		Cardinality:  CardinalityMulti,
		Kind:         AssetKindImage,
		FilePart:     "screenshots",
		ControlField: "existingScreenshots",
		MaxFiles:     MaxScreenshots,
		Prefix:       "projects/screenshots",
	},
	{
		Entity:       EntityTestimonial,
		Field:        FieldAvatar,
		Cardinality:  CardinalitySingle,
		Kind:         AssetKindImage,
		FilePart:     "avatar",
		ControlField: "avatar",
		Prefix:       "testimonials",
	},
}

// BindingsFor returns the bindings of one entity type in table order
func BindingsFor(entity EntityType) []FieldBinding {
	var out []FieldBinding
	for _, b := range Bindings {
		if b.Entity == entity {
			out = append(out, b)
		}
	}
	return out
}

func (b FieldBinding) maxFiles() int {
	if b.Cardinality == CardinalitySingle {
		return 1
	}
	if b.MaxFiles <= 0 {
		return MaxScreenshots
	}
	return b.MaxFiles
}

// AssetHolder gives the update flow uniform access to an entity's asset
// fields by binding name.
type AssetHolder interface {
	Asset(field string) *AssetRef
	SetAsset(field string, ref *AssetRef)
	AssetList(field string) []AssetRef
	SetAssetList(field string, refs []AssetRef)
}

// AssetsOf returns every reference an entity currently holds
func AssetsOf(entity EntityType, h AssetHolder) []AssetRef {
	var refs []AssetRef
	for _, b := range BindingsFor(entity) {
		switch b.Cardinality {
		case CardinalitySingle:
			if ref := h.Asset(b.Field); ref != nil && !ref.IsZero() {
				refs = append(refs, *ref)
			}
		case CardinalityMulti:
			refs = append(refs, h.AssetList(b.Field)...)
		}
	}
	return refs
}

func (c *SiteContent) Asset(field string) *AssetRef {
	switch field {
	case FieldProfileImage:
		return c.Hero.ProfileImage
	case FieldResumeDocument:
		return c.Hero.Resume
	}
	return nil
}

func (c *SiteContent) SetAsset(field string, ref *AssetRef) {
	switch field {
	case FieldProfileImage:
		c.Hero.ProfileImage = ref
	case FieldResumeDocument:
		c.Hero.Resume = ref
	}
}

func (c *SiteContent) AssetList(string) []AssetRef { return nil }

func (c *SiteContent) SetAssetList(string, []AssetRef) {}

func (p *Project) Asset(field string) *AssetRef {
	if field == FieldCoverImage {
		return p.CoverImage
	}
	return nil
}

func (p *Project) SetAsset(field string, ref *AssetRef) {
	if field == FieldCoverImage {
		p.CoverImage = ref
	}
}

func (p *Project) AssetList(field string) []AssetRef {
	if field == FieldScreenshots {
		return p.Screenshots
	}
	return nil
}

func (p *Project) SetAssetList(field string, refs []AssetRef) {
	if field == FieldScreenshots {
		p.Screenshots = refs
	}
}

func (t *Testimonial) Asset(field string) *AssetRef {
	if field == FieldAvatar {
		return t.Avatar
	}
	return nil
}

func (t *Testimonial) SetAsset(field string, ref *AssetRef) {
	if field == FieldAvatar {
		t.Avatar = ref
	}
}

func (t *Testimonial) AssetList(string) []AssetRef { return nil }

func (t *Testimonial) SetAssetList(string, []AssetRef) {}
