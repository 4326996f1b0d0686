package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/tendant/portfolio-content/pkg/portfolio"
)

const (
	// maxMemory is the part of a multipart body kept in memory; the rest
	// spills to temporary files.
	maxMemory = 8 << 20

	// maxRequestBytes bounds a whole request: every file part at the
	// upload limit plus room for text fields.
	maxRequestBytes = int64(portfolio.MaxScreenshots+2)*portfolio.MaxUploadSize + 1<<20
)

// form wraps the parsed request body
type form struct {
	values map[string][]string
	files  map[string][]*multipart.FileHeader
	opened []multipart.File
}

func parseForm(w http.ResponseWriter, r *http.Request) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	err := r.ParseMultipartForm(maxMemory)
	switch {
	case err == nil:
		return &form{values: r.MultipartForm.Value, files: r.MultipartForm.File}, nil
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return nil, &portfolio.ValidationError{Reason: fmt.Sprintf("malformed form: %v", err)}
		}
		return &form{values: r.PostForm}, nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &portfolio.ValidationError{Reason: fmt.Sprintf("malformed multipart body: %v", err)}
	}
}

// close releases opened files and any temporary files of the request
func (f *form) close(r *http.Request) {
	for _, file := range f.opened {
		_ = file.Close()
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// text returns the first value of a field, nil when the field is absent
func (f *form) text(key string) *string {
	values, ok := f.values[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func (f *form) textOr(key, fallback string) string {
	if v := f.text(key); v != nil {
		return *v
	}
	return fallback
}

// decodeJSON decodes a JSON text field into dst; it reports whether the field was present
func (f *form) decodeJSON(key string, dst any) (bool, error) {
	raw := f.text(key)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(*raw), dst); err != nil {
		return true, &portfolio.ValidationError{Field: key, Reason: "invalid JSON"}
	}
	return true, nil
}

// techStack accepts a JSON array or a comma-separated list
func (f *form) techStack() *[]string {
	raw := f.text("techStack")
	if raw == nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(*raw), &list); err != nil {
		list = strings.Split(*raw, ",")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return &out
}

func (f *form) rating() (*int, error) {
	raw := f.text("rating")
	if raw == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		return nil, &portfolio.ValidationError{Field: "rating", Reason: "must be a number"}
	}
	return &n, nil
}

// assetChanges reads the file and control parts of every binding of entity
func (f *form) assetChanges(entity portfolio.EntityType) (portfolio.AssetChanges, error) {
	changes := portfolio.AssetChanges{}
	for _, b := range portfolio.BindingsFor(entity) {
		var change portfolio.FieldChange
		present := false

		for _, header := range f.files[b.FilePart] {
			file, err := header.Open()
			if err != nil {
				return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
			}
			f.opened = append(f.opened, file)
			change.Uploads = append(change.Uploads, portfolio.FileUpload{
				FileName: header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Size:     header.Size,
				Content:  file,
			})
			present = true
		}

		control := f.text(b.ControlField)
		switch {
		case control == nil:
		case b.Cardinality == portfolio.CardinalityMulti:
			retained, err := parseRetained(b.ControlField, *control)
			if err != nil {
				return nil, err
			}
			if retained != nil {
				change.Retained = retained
				present = true
			}
		case isClearValue(*control):
			change.Clear = true
			present = true
		}

		if present {
			changes[b.Field] = change
		}
	}
	return changes, nil
}

// isClearValue reports whether a single-field control value empties the field.
// Any other value echoes the current asset and keeps it.
func isClearValue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "null"
}

// parseRetained returns nil for an empty or null value, which keeps every
// stored entry. Only an explicit "[]" keeps none.
func parseRetained(field, raw string) (*[]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	entries := []string{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &portfolio.ValidationError{Field: field, Reason: "must be a JSON array of strings"}
	}
	return &entries, nil
}
