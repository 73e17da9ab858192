package upload

import (
	"fmt"
	"time"
)

// Status tracks the lifecycle of an upload session. Transitions are forward
// only; completed and failed are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusAssembling Status = "assembling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a stored status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusUploading, StatusAssembling, StatusCompleted, StatusFailed:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown upload status %q", raw)
}

// terminal reports whether no further transitions are allowed.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// PartRecord tracks a single part of a chunked upload. Part numbers are
// 1-indexed and contiguous.
type PartRecord struct {
	PartNumber int    `json:"part_number"`
	Uploaded   bool   `json:"uploaded"`
	ETag       string `json:"etag,omitempty"`
}

// Session is the registry's record of one chunked upload.
type Session struct {
	ID            string       `json:"id"`
	TargetName    string       `json:"target_name"`
	MimeType      string       `json:"mime_type"`
	DeclaredSize  int64        `json:"declared_size"`
	PartSize      int64        `json:"part_size"`
	TotalParts    int          `json:"total_parts"`
	Parts         []PartRecord `json:"parts"`
	Status        Status       `json:"status"`
	UploaderEmail string       `json:"uploader_email,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// UploadedParts counts the parts whose bytes are stored.
func (s Session) UploadedParts() int {
	count := 0
	for _, p := range s.Parts {
		if p.Uploaded {
			count++
		}
	}
	return count
}

// ProgressPercent reports completion as a rounded percentage.
func (s Session) ProgressPercent() int {
	if s.TotalParts == 0 {
		return 0
	}
	return int((float64(s.UploadedParts())/float64(s.TotalParts))*100 + 0.5)
}

// Complete reports whether every part has been uploaded.
func (s Session) Complete() bool {
	return s.UploadedParts() == s.TotalParts
}

// Progress is the read model returned by progress queries.
type Progress struct {
	Percent       int    `json:"progress"`
	UploadedParts int    `json:"uploaded_parts"`
	TotalParts    int    `json:"total_parts"`
	Status        Status `json:"status"`
}
