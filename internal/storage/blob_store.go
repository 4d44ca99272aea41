package storage

import (
	"os"
	"time"
)

// BlobStore manages encrypted blobs at rest. Paths are logical resource
// identifiers; implementations map them to storage locations and must
// refuse traversal outside their root.
type BlobStore interface {
	// WriteMedia saves the encrypted blob for a resource.
	WriteMedia(resourceID string, data []byte) error

	// ReadMedia retrieves a resource's encrypted blob.
	ReadMedia(resourceID string) ([]byte, error)

	// WriteThumbnail saves an encrypted thumbnail variant.
	WriteThumbnail(resourceID, size string, data []byte) error

	// ReadThumbnail retrieves an encrypted thumbnail variant.
	ReadThumbnail(resourceID, size string) ([]byte, error)

	// Delete removes a resource's blob and all its thumbnails.
	Delete(resourceID string) error

	// Exists checks whether a resource blob is present.
	Exists(resourceID string) (bool, error)

	// Stat returns blob metadata.
	Stat(resourceID string) (BlobInfo, error)
}

// BlobInfo contains blob metadata.
type BlobInfo struct {
	ResourceID string
	Size       int64
	Mode       os.FileMode
	ModTime    time.Time
}
