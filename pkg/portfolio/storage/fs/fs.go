package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/portfolio-content/pkg/portfolio"
	"github.com/tendant/portfolio-content/pkg/portfolio/objectkey"
)

const backendName = "fs"

// Backend is a filesystem implementation of the portfolio.BlobStore interface.
// Locators are object keys relative to BaseDir, served under URLPrefix.
type Backend struct {
	baseDir   string
	urlPrefix string
	keys      objectkey.Generator
}

// Config options for the filesystem backend
type Config struct {
	BaseDir      string              // Base directory for storing files
	URLPrefix    string              // Path the directory is served under, default /uploads
	KeyGenerator objectkey.Generator // Default flat layout
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	// Validate and create base directory if it doesn't exist
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	baseDir, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	urlPrefix := strings.TrimRight(config.URLPrefix, "/")
	if urlPrefix == "" {
		urlPrefix = portfolio.DefaultLocalURLPrefix
	}

	keys := config.KeyGenerator
	if keys == nil {
		keys = objectkey.NewFlatGenerator()
	}

	return &Backend{
		baseDir:   baseDir,
		urlPrefix: urlPrefix,
		keys:      keys,
	}, nil
}

// BaseDir returns the absolute directory files are written to
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// URLPrefix returns the path the directory is served under
func (b *Backend) URLPrefix() string {
	return b.urlPrefix
}

func (b *Backend) Kind() portfolio.BackendKind {
	return portfolio.BackendLocal
}

// Store writes the upload to a fresh file below the base directory
func (b *Backend) Store(ctx context.Context, r io.Reader, params portfolio.UploadParams) (portfolio.AssetRef, error) {
	ext, err := portfolio.ValidateUpload(params)
	if err != nil {
		return portfolio.AssetRef{}, err
	}

	key := b.keys.GenerateKey(uuid.New(), &objectkey.KeyMetadata{Prefix: params.Prefix, Extension: ext})
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))

	// Create directory structure if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return portfolio.AssetRef{}, b.storageErr("store", key, fmt.Errorf("failed to create directory: %w", err))
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return portfolio.AssetRef{}, b.storageErr("store", key, fmt.Errorf("failed to create file: %w", err))
	}

	_, copyErr := io.Copy(file, portfolio.LimitUpload(readerWithContext(ctx, r)))
	closeErr := file.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(filePath)
		b.cleanupEmptyDirectories(filepath.Dir(filePath))
		if errors.Is(copyErr, portfolio.ErrValidation) {
			return portfolio.AssetRef{}, copyErr
		}
		return portfolio.AssetRef{}, b.storageErr("store", key, fmt.Errorf("failed to write file: %w", copyErr))
	}

	return portfolio.AssetRef{Locator: key, Backend: portfolio.BackendLocal}, nil
}

// Resolve returns the root-relative URL the file is served at
func (b *Backend) Resolve(ref portfolio.AssetRef) (string, error) {
	if ref.IsZero() {
		return "", nil
	}
	if portfolio.InferBackend(ref.Locator) == portfolio.BackendRemote {
		return ref.Locator, nil
	}
	return b.urlPrefix + "/" + strings.TrimLeft(ref.Locator, "/"), nil
}

// Delete removes the file. Missing files and locators outside the base
// directory are reported as portfolio.ErrSkipped.
func (b *Backend) Delete(ctx context.Context, ref portfolio.AssetRef) error {
	filePath, ok := b.pathFor(ref.Locator)
	if !ok {
		return fmt.Errorf("locator not owned by filesystem backend: %w", portfolio.ErrSkipped)
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file already absent: %w", portfolio.ErrSkipped)
		}
		return b.storageErr("delete", ref.Locator, fmt.Errorf("failed to delete file: %w", err))
	}

	// Clean up empty directories
	b.cleanupEmptyDirectories(filepath.Dir(filePath))

	return nil
}

// pathFor maps a locator to a file below the base directory
func (b *Backend) pathFor(locator string) (string, bool) {
	if locator == "" || portfolio.InferBackend(locator) == portfolio.BackendRemote {
		return "", false
	}
	locator = strings.TrimPrefix(locator, b.urlPrefix+"/")
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(locator))
	rel, err := filepath.Rel(b.baseDir, filePath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filePath, true
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	// Don't remove the base directory
	if dir == b.baseDir || !strings.HasPrefix(dir, b.baseDir) {
		return
	}

	// Check if directory is empty
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		// Remove empty directory
		if os.Remove(dir) == nil {
			// Recursively clean parent directory
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}

func (b *Backend) storageErr(op, key string, err error) error {
	return &portfolio.StorageError{Backend: backendName, Key: key, Op: op, Err: err}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var _ portfolio.BlobStore = (*Backend)(nil)
