package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ScanImageStore keeps the photos of scans that need a human look
type ScanImageStore struct {
	storageDir string
}

// NewScanImageStore creates dir if needed
func NewScanImageStore(dir string) (*ScanImageStore, error) {
	if dir == "" {
		dir = "./data/scanned_images"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scanned images directory: %w", err)
	}
	return &ScanImageStore{storageDir: dir}, nil
}

// Save writes image under a fresh name and returns that name
func (s *ScanImageStore) Save(image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image data")
	}

	filename := uuid.NewString() + imageExtension(detectMimeType(image))
	if err := os.WriteFile(filepath.Join(s.storageDir, filename), image, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filename, nil
}

// Path resolves a stored filename. Names that would escape the storage
// directory are rejected.
func (s *ScanImageStore) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid image name %q", filename)
	}
	return filepath.Join(s.storageDir, filename), nil
}

// Remove deletes a stored image; a missing file is not an error
func (s *ScanImageStore) Remove(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}

func (s *ScanImageStore) Dir() string {
	return s.storageDir
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
