package portfolio

import (
	"context"
	"fmt"
	"strings"
)

// DefaultLocalURLPrefix is where the HTTP server mounts the local backend
const DefaultLocalURLPrefix = "/uploads"

// Stores holds every configured backend keyed by kind and delegates to the
// one a reference names. New uploads always go to the writer.
type Stores struct {
	backends map[BackendKind]BlobStore
	writer   BackendKind
}

// NewStores registers the given backends. The writer must be one of them.
func NewStores(writer BackendKind, backends ...BlobStore) (*Stores, error) {
	s := &Stores{
		backends: make(map[BackendKind]BlobStore, len(backends)),
		writer:   writer,
	}
	for _, b := range backends {
		if b == nil {
			continue
		}
		s.backends[b.Kind()] = b
	}
	if _, ok := s.backends[writer]; !ok {
		return nil, fmt.Errorf("writer backend %q: %w", writer, ErrBackendNotConfigured)
	}
	return s, nil
}

// Writer returns the backend new uploads are stored in
func (s *Stores) Writer() BlobStore {
	return s.backends[s.writer]
}

// Resolve delegates to the reference's backend. When that backend is not
// configured, remote locators are returned as-is and local locators are
// placed under the default uploads prefix.
func (s *Stores) Resolve(ref AssetRef) (string, error) {
	if ref.IsZero() {
		return "", nil
	}
	if b, ok := s.backends[ref.Backend]; ok {
		return b.Resolve(ref)
	}
	if ref.Backend == BackendRemote {
		return ref.Locator, nil
	}
	return DefaultLocalURLPrefix + "/" + strings.TrimLeft(ref.Locator, "/"), nil
}

// Delete delegates to the reference's backend. References whose backend is
// not configured are skipped.
func (s *Stores) Delete(ctx context.Context, ref AssetRef) error {
	b, ok := s.backends[ref.Backend]
	if !ok {
		return fmt.Errorf("backend %q: %w", ref.Backend, ErrSkipped)
	}
	return b.Delete(ctx, ref)
}

// MatchRetained maps client supplied entries to existing locators. Clients
// may echo either the stored locator or the URL it resolved to.
func (s *Stores) MatchRetained(existing []AssetRef, entries []string) []string {
	byURL := make(map[string]string, len(existing))
	byLocator := make(map[string]struct{}, len(existing))
	for _, ref := range existing {
		byLocator[ref.Locator] = struct{}{}
		if u, err := s.Resolve(ref); err == nil && u != "" {
			byURL[u] = ref.Locator
		}
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if _, ok := byLocator[e]; ok {
			out = append(out, e)
			continue
		}
		if loc, ok := byURL[e]; ok {
			out = append(out, loc)
			continue
		}
		// Unknown entries pass through and are ignored by reconciliation.
		out = append(out, e)
	}
	return out
}
