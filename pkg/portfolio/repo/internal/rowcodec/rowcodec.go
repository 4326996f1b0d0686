// Package rowcodec converts entity fields to and from the JSON columns
// shared by the SQL repositories.
package rowcodec

import (
	"encoding/json"
	"fmt"

	"github.com/tendant/portfolio-content/pkg/portfolio"
)

// EncodeRef returns nil for an empty reference so the column stores NULL
func EncodeRef(ref *portfolio.AssetRef) ([]byte, error) {
	if ref == nil || ref.IsZero() {
		return nil, nil
	}
	return json.Marshal(ref)
}

// DecodeRef accepts NULL, the object form and legacy bare strings
func DecodeRef(raw []byte) (*portfolio.AssetRef, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var ref portfolio.AssetRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, err
	}
	if ref.IsZero() {
		return nil, nil
	}
	return &ref, nil
}

// EncodeRefs always produces a JSON array
func EncodeRefs(refs []portfolio.AssetRef) ([]byte, error) {
	if refs == nil {
		refs = []portfolio.AssetRef{}
	}
	return json.Marshal(refs)
}

func DecodeRefs(raw []byte) ([]portfolio.AssetRef, error) {
	out := []portfolio.AssetRef{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeStrings always produces a JSON array
func EncodeStrings(s []string) ([]byte, error) {
	if s == nil {
		s = []string{}
	}
	return json.Marshal(s)
}

func DecodeStrings(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectColumns holds the encoded JSON columns of a project row
type ProjectColumns struct {
	TechStack   []byte
	CoverImage  []byte
	Screenshots []byte
}

func EncodeProject(p *portfolio.Project) (ProjectColumns, error) {
	var cols ProjectColumns
	var err error
	if cols.TechStack, err = EncodeStrings(p.TechStack); err != nil {
		return cols, fmt.Errorf("encode tech stack: %w", err)
	}
	if cols.CoverImage, err = EncodeRef(p.CoverImage); err != nil {
		return cols, fmt.Errorf("encode cover image: %w", err)
	}
	if cols.Screenshots, err = EncodeRefs(p.Screenshots); err != nil {
		return cols, fmt.Errorf("encode screenshots: %w", err)
	}
	return cols, nil
}

func DecodeProject(p *portfolio.Project, cols ProjectColumns) error {
	var err error
	if p.TechStack, err = DecodeStrings(cols.TechStack); err != nil {
		return fmt.Errorf("decode tech stack: %w", err)
	}
	if p.CoverImage, err = DecodeRef(cols.CoverImage); err != nil {
		return fmt.Errorf("decode cover image: %w", err)
	}
	if p.Screenshots, err = DecodeRefs(cols.Screenshots); err != nil {
		return fmt.Errorf("decode screenshots: %w", err)
	}
	return nil
}
