package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
)

const stagingDir = ".staging"

// LocalStorage keeps uploads on the filesystem and serves them under /uploads.
// Files are written to a staging directory first and renamed into place.
type LocalStorage struct {
	baseURL    string
	uploadsDir string
}

func NewLocalStorage(baseURL, uploadsDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(uploadsDir, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalStorage{baseURL: strings.TrimRight(baseURL, "/"), uploadsDir: uploadsDir}, nil
}

func (s *LocalStorage) Save(ctx context.Context, folder string, f *File) (*domain.StoredFile, error) {
	folder = filepath.Base(folder)
	name := uuid.New().String() + f.Ext

	staged := filepath.Join(s.uploadsDir, stagingDir, name)
	if err := os.WriteFile(staged, f.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	dir := filepath.Join(s.uploadsDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.Rename(staged, filepath.Join(dir, name)); err != nil {
		return nil, fmt.Errorf("failed to move staged file: %w", err)
	}

	return &domain.StoredFile{
		URL:              fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, folder, name),
		PublicID:         folder + "/" + name,
		OriginalFilename: f.Filename,
		Format:           strings.TrimPrefix(f.Ext, "."),
		Bytes:            int64(len(f.Data)),
		UploadedAt:       time.Now(),
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, publicID string) error {
	path, err := s.Path(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Path resolves a public id to a file inside the uploads directory.
func (s *LocalStorage) Path(publicID string) (string, error) {
	clean := filepath.Clean("/" + publicID)
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(parts) != 2 || parts[0] == stagingDir || parts[1] == "" {
		return "", domain.NotFound("file")
	}
	return filepath.Join(s.uploadsDir, parts[0], parts[1]), nil
}

// CleanupStaged removes staging files older than maxAge, left behind by
// uploads that failed between write and rename.
func (s *LocalStorage) CleanupStaged(maxAge time.Duration) (int, error) {
	dir := filepath.Join(s.uploadsDir, stagingDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			logger.Warn("Failed to remove staged upload", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
