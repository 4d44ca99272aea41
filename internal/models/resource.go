package models

import "time"

// Resource describes one stored media item.
type Resource struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Encrypted   bool      `json:"encrypted"`
	CreatedAt   time.Time `json:"created_at"`
}

// ThumbnailSizes lists the variants the server will produce and the
// client may request. An unlisted size is rejected at the boundary.
var ThumbnailSizes = map[string]bool{
	"small":  true,
	"medium": true,
	"large":  true,
}
