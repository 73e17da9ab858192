package image

import (
	"time"

	"github.com/google/uuid"
)

// Asset represents a published image. Fields are fixed at creation.
type Asset struct {
	ID            uuid.UUID `json:"id"`
	StorageKey    string    `json:"storage_key"`
	OriginalName  string    `json:"original_name"`
	MimeType      string    `json:"mime_type"`
	SizeBytes     int64     `json:"size_bytes"`
	ShortCode     string    `json:"short_code"`
	UploaderEmail string    `json:"uploader_email,omitempty"`
	BatchID       string    `json:"batch_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
