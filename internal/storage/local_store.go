package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// LocalStore keeps encrypted blobs on the local filesystem:
// media/<id> for full blobs, thumbs/<id>/<size> for variants.
type LocalStore struct {
	baseDir     string
	maxFileSize int64
	logger      *events.Logger
}

// NewLocalStore creates a local blob store rooted at baseDir.
func NewLocalStore(baseDir string, maxFileSize int64, logger *events.Logger) (*LocalStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	for _, dir := range []string{absPath, filepath.Join(absPath, "media"), filepath.Join(absPath, "thumbs")} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &LocalStore{
		baseDir:     absPath,
		maxFileSize: maxFileSize,
		logger:      logger.WithField("component", "blob_store"),
	}, nil
}

// WriteMedia saves the encrypted blob for a resource atomically.
func (s *LocalStore) WriteMedia(resourceID string, data []byte) error {
	path, err := s.mediaPath(resourceID)
	if err != nil {
		return err
	}
	return s.writeAtomic(path, data)
}

// ReadMedia retrieves a resource's encrypted blob.
func (s *LocalStore) ReadMedia(resourceID string) ([]byte, error) {
	path, err := s.mediaPath(resourceID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrResourceNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// WriteThumbnail saves an encrypted thumbnail variant atomically.
func (s *LocalStore) WriteThumbnail(resourceID, size string, data []byte) error {
	path, err := s.thumbPath(resourceID, size)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}
	return s.writeAtomic(path, data)
}

// ReadThumbnail retrieves an encrypted thumbnail variant.
func (s *LocalStore) ReadThumbnail(resourceID, size string) ([]byte, error) {
	path, err := s.thumbPath(resourceID, size)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrResourceNotFound
		}
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	return data, nil
}

// Delete removes a resource's blob and all its thumbnails.
func (s *LocalStore) Delete(resourceID string) error {
	path, err := s.mediaPath(resourceID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}

	thumbDir := filepath.Join(s.baseDir, "thumbs", resourceID)
	if err := os.RemoveAll(thumbDir); err != nil {
		return fmt.Errorf("delete thumbnails: %w", err)
	}

	return nil
}

// Exists checks whether a resource blob is present.
func (s *LocalStore) Exists(resourceID string) (bool, error) {
	path, err := s.mediaPath(resourceID)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}

// Stat returns blob metadata.
func (s *LocalStore) Stat(resourceID string) (BlobInfo, error) {
	path, err := s.mediaPath(resourceID)
	if err != nil {
		return BlobInfo{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return BlobInfo{}, models.ErrResourceNotFound
		}
		return BlobInfo{}, fmt.Errorf("stat blob: %w", err)
	}

	return BlobInfo{
		ResourceID: resourceID,
		Size:       info.Size(),
		Mode:       info.Mode(),
		ModTime:    info.ModTime(),
	}, nil
}

// writeAtomic writes via a temp file and rename so readers never see a
// torn blob.
func (s *LocalStore) writeAtomic(path string, data []byte) error {
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return fmt.Errorf("blob too large: %d bytes (max %d)", len(data), s.maxFileSize)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
	}).Debug("Wrote blob")

	return nil
}

func (s *LocalStore) mediaPath(resourceID string) (string, error) {
	id, err := sanitizeComponent(resourceID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, "media", id), nil
}

func (s *LocalStore) thumbPath(resourceID, size string) (string, error) {
	id, err := sanitizeComponent(resourceID)
	if err != nil {
		return "", err
	}
	sz, err := sanitizeComponent(size)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, "thumbs", id, sz), nil
}

// sanitizeComponent rejects anything that could escape the store root.
// Resource IDs are UUIDs and sizes are names from a fixed set, so a
// single flat component is all that is ever valid.
func sanitizeComponent(c string) (string, error) {
	if c == "" {
		return "", fmt.Errorf("empty path component")
	}
	if strings.ContainsAny(c, `/\`) || strings.Contains(c, "..") {
		return "", fmt.Errorf("invalid path component: %q", c)
	}
	if strings.HasPrefix(c, ".") {
		return "", fmt.Errorf("invalid path component: %q", c)
	}
	return c, nil
}
