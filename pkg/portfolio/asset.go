package portfolio

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"
)

// BackendKind identifies which storage backend holds an asset
type BackendKind string

const (
	// BackendRemote is an object store reachable by public URL
	BackendRemote BackendKind = "remote"
	// BackendLocal is a local directory served by the API process
	BackendLocal BackendKind = "local"
)

// Valid reports whether k is a known backend kind
func (k BackendKind) Valid() bool {
	return k == BackendRemote || k == BackendLocal
}

// AssetRef is the persisted pointer to one stored file. The backend
// travels with the locator so that records written under one storage
// configuration can still be resolved and deleted under another.
type AssetRef struct {
	Locator string      `json:"locator"`
	Backend BackendKind `json:"backend"`
}

// InferBackend guesses the backend for a bare locator string.
// Absolute http(s) URLs are remote, anything else is a local key.
func InferBackend(locator string) BackendKind {
	lower := strings.ToLower(locator)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return BackendRemote
	}
	return BackendLocal
}

// NewAssetRef builds a reference from a bare locator, inferring its backend.
func NewAssetRef(locator string) AssetRef {
	return AssetRef{Locator: locator, Backend: InferBackend(locator)}
}

// IsZero reports whether the reference points at nothing
func (a AssetRef) IsZero() bool {
	return a.Locator == ""
}

// Same reports whether both references name the same stored file
func (a AssetRef) Same(b AssetRef) bool {
	return a.Locator == b.Locator && a.Backend == b.Backend
}

func (a AssetRef) String() string {
	return fmt.Sprintf("%s:%s", a.Backend, a.Locator)
}

// UnmarshalJSON accepts the object form and the legacy bare string form.
func (a *AssetRef) UnmarshalJSON(data []byte) error {
	var locator string
	if err := json.Unmarshal(data, &locator); err == nil {
		*a = NewAssetRef(locator)
		return nil
	}

	type plain AssetRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode asset reference: %w", err)
	}
	if p.Backend == "" {
		p.Backend = InferBackend(p.Locator)
	}
	if !p.Backend.Valid() {
		return fmt.Errorf("decode asset reference: unknown backend %q", p.Backend)
	}
	*a = AssetRef(p)
	return nil
}

// AssetKind is the class of file a binding accepts
type AssetKind string

const (
	AssetKindImage    AssetKind = "image"
	AssetKindDocument AssetKind = "document"
)

// MaxUploadSize is the largest file accepted for any binding
const MaxUploadSize int64 = 5 << 20

var allowedMimeTypes = map[AssetKind]map[string]string{
	AssetKindImage: {
		"image/jpeg":    ".jpg",
		"image/jpg":     ".jpg",
		"image/png":     ".png",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	},
	AssetKindDocument: {
		"application/pdf":    ".pdf",
		"application/msword": ".doc",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	},
}

// NormalizeMimeType strips parameters and lowercases a content type
func NormalizeMimeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Accepts reports whether the kind allows the given content type
func (k AssetKind) Accepts(contentType string) bool {
	_, ok := allowedMimeTypes[k][NormalizeMimeType(contentType)]
	return ok
}

// ExtensionFor returns the canonical file extension for an accepted type
func (k AssetKind) ExtensionFor(contentType string) string {
	return allowedMimeTypes[k][NormalizeMimeType(contentType)]
}

// ValidateUpload checks the declared type and size of an upload before
// anything is written and returns the extension to store it under.
func ValidateUpload(params UploadParams) (string, error) {
	kinds := []AssetKind{params.Kind}
	if params.Kind == "" {
		kinds = []AssetKind{AssetKindImage, AssetKindDocument}
	}

	ext := ""
	for _, k := range kinds {
		if k.Accepts(params.MimeType) {
			ext = k.ExtensionFor(params.MimeType)
			break
		}
	}
	if ext == "" {
		return "", invalid("file", "file type %q is not allowed", params.MimeType)
	}
	if params.Size < 0 || params.Size > MaxUploadSize {
		return "", invalid("file", "file exceeds %d bytes", MaxUploadSize)
	}
	return ext, nil
}
