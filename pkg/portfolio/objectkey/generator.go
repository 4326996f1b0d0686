package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Root is the top-level folder every generated key lives under
const Root = "portfolio"

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(id uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	// Prefix groups keys by owning field, e.g. "projects/screenshots"
	Prefix string
	// Extension including the dot, e.g. ".png"
	Extension string
}

// FlatGenerator places every object directly under its prefix
// Structure: portfolio/{prefix}/{uuid}{ext}
type FlatGenerator struct{}

func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{}
}

func (g *FlatGenerator) GenerateKey(id uuid.UUID, metadata *KeyMetadata) string {
	prefix, ext := split(metadata)
	return path.Join(Root, prefix, id.String()+ext)
}

// GitLikeGenerator provides Git-style sharding below the prefix
// Structure: portfolio/{prefix}/ab/cd1234ef5678...{ext}
type GitLikeGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{
		ShardLength: 2,
	}
}

func (g *GitLikeGenerator) GenerateKey(id uuid.UUID, metadata *KeyMetadata) string {
	prefix, ext := split(metadata)
	idStr := strings.ReplaceAll(id.String(), "-", "")

	shard := g.ShardLength
	if shard <= 0 || shard >= len(idStr) {
		shard = 2
	}
	return path.Join(Root, prefix, idStr[:shard], idStr[shard:]+ext)
}

// ForLayout returns the generator for a configured layout name
func ForLayout(layout string) (Generator, error) {
	switch layout {
	case "", "flat":
		return NewFlatGenerator(), nil
	case "sharded", "git-like":
		return NewGitLikeGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown key layout %q", layout)
	}
}

func split(metadata *KeyMetadata) (prefix, ext string) {
	if metadata == nil {
		return "", ""
	}
	return sanitizePrefix(metadata.Prefix), sanitizeExtension(metadata.Extension)
}

func sanitizePrefix(prefix string) string {
	var parts []string
	for _, p := range strings.Split(prefix, "/") {
		p = sanitizePathComponent(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/")
}

func sanitizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || b.Len() > 8 {
		return ""
	}
	return "." + b.String()
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(strings.TrimSpace(component))
}
