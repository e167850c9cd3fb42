package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brforum/forum-backend/internal/observability"
)

// DiskStore keeps photos as plain files under a configured directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: create upload dir: %v", ErrStorage, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir exposes the upload directory so the router can serve images from it.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(ctx context.Context, upload *Upload) (string, error) {
	if upload == nil {
		return SentinelPhoto, nil
	}
	name, err := validateUpload(upload)
	if err != nil {
		observability.RecordPhotoOperation(ctx, "save", "rejected")
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), upload.Data, 0o600); err != nil {
		observability.RecordPhotoOperation(ctx, "save", "error")
		return "", fmt.Errorf("%w: write %s: %v", ErrStorage, name, err)
	}
	observability.RecordPhotoOperation(ctx, "save", "success")
	return name, nil
}

func (s *DiskStore) Remove(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		observability.RecordPhotoOperation(ctx, "remove", "error")
		return fmt.Errorf("%w: remove %s: %v", ErrStorage, name, err)
	}
	observability.RecordPhotoOperation(ctx, "remove", "success")
	return nil
}
