package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Store saves uploaded crop images and returns the URL recorded on the
// listing.
type Store interface {
	Save(ctx context.Context, filename string, size int64, r io.Reader) (string, error)
}

// DiskStore writes images under a local uploads directory, served statically
// by the HTTP layer.
type DiskStore struct {
	dir string
}

// NewDiskStore ensures the uploads directory exists
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the image with a unique timestamped name
func (d *DiskStore) Save(_ context.Context, filename string, _ int64, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), filepath.Ext(filename))
	path := filepath.Join(d.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return filepath.ToSlash(filepath.Join(d.dir, name)), nil
}
