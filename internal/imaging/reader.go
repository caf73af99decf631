package imaging

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vonshlovens/notestore/internal/config"
)

var (
	// ErrTooLarge is returned for files above the configured size limit.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrNotAllowed is returned when the file name matches none of the allow patterns.
	ErrNotAllowed = errors.New("image file name not allowed")
	// ErrNotFile is returned for locators that do not name a local file.
	ErrNotFile = errors.New("locator is not a local file")
)

// Reader loads the raw bytes behind an image locator.
type Reader interface {
	Read(ctx context.Context, locator string) ([]byte, error)
}

// FileReader reads images from the local filesystem.
type FileReader struct {
	// BaseDir resolves relative paths. Empty means the working directory.
	BaseDir string
	// MaxBytes bounds the file size. Zero means unlimited.
	MaxBytes int64
	// AllowPatterns are doublestar patterns matched against the base name.
	// Empty allows every name.
	AllowPatterns []string
}

// NewFileReader creates a reader from the images configuration.
func NewFileReader(cfg config.ImagesConfig) *FileReader {
	return &FileReader{
		BaseDir:       cfg.BaseDir,
		MaxBytes:      cfg.MaxImageBytes(),
		AllowPatterns: cfg.AllowPatterns,
	}
}

// WithBaseDir returns a copy of r that resolves relative paths against dir.
func (r *FileReader) WithBaseDir(dir string) *FileReader {
	c := *r
	c.BaseDir = dir
	return &c
}

// Read implements Reader.
func (r *FileReader) Read(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := LocalPath(locator)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, path)
	}

	if !r.allowed(filepath.Base(path)) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotAllowed)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrNotFile)
	}
	if r.MaxBytes > 0 && info.Size() > r.MaxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", filepath.Base(path), info.Size(), r.MaxBytes, ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func (r *FileReader) allowed(name string) bool {
	if len(r.AllowPatterns) == 0 {
		return true
	}
	for _, pattern := range r.AllowPatterns {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return true
		}
	}
	return false
}

// LocalPath turns a plain path or file:// URI into a filesystem path.
func LocalPath(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	switch {
	case locator == "":
		return "", fmt.Errorf("empty locator: %w", ErrNotFile)
	case strings.HasPrefix(locator, "data:"):
		return "", fmt.Errorf("data URI: %w", ErrNotFile)
	case strings.HasPrefix(locator, "file://"):
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("invalid file URI: %w", err)
		}
		if u.Path == "" {
			return "", fmt.Errorf("file URI without path: %w", ErrNotFile)
		}
		return filepath.FromSlash(u.Path), nil
	case strings.Contains(locator, "://"):
		return "", fmt.Errorf("unsupported scheme in %q: %w", locator, ErrNotFile)
	}
	return locator, nil
}
