package storage

import (
	"context"
	"fmt"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
)

// File is an upload that already passed size and content checks.
type File struct {
	Field    string
	Filename string
	MIME     string
	Ext      string
	Data     []byte
}

// Storage persists uploaded files. Local filesystem and Cloudinary backends
// return the same StoredFile shape.
type Storage interface {
	// Save stores f under folder and describes where it went.
	Save(ctx context.Context, folder string, f *File) (*domain.StoredFile, error)

	// Delete removes a stored object by its public id. Missing objects are not an error.
	Delete(ctx context.Context, publicID string) error
}

// New builds the backend selected by cfg.Type.
func New(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStorage(cfg.BaseURL, cfg.UploadDir)
	case "cloudinary":
		return NewCloudinaryStorage(cfg.CloudinaryURL, cfg.Folder)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

// DeleteAll removes every file and returns the first error.
func DeleteAll(ctx context.Context, s Storage, files []*domain.StoredFile) error {
	var first error
	for _, f := range files {
		if f == nil || f.PublicID == "" {
			continue
		}
		if err := s.Delete(ctx, f.PublicID); err != nil && first == nil {
			first = err
		}
	}
	return first
}
