package upload

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// allowedTypes is the image mime-type set accepted for upload.
var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// AllowedType reports whether the mime type may be uploaded.
func AllowedType(mimeType string) bool {
	_, ok := allowedTypes[mimeType]
	return ok
}

type sessionEntry struct {
	mu   sync.Mutex
	data Session
}

// Registry is the process-wide mapping from upload identifiers to session
// state. It is constructed once at startup and injected wherever needed;
// a fresh instance per test gives isolation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	partSize int64
	maxParts int
	ttl      time.Duration
	nowFunc  func() time.Time
}

// NewRegistry builds an empty session registry with the given part policy.
func NewRegistry(partSize int64, maxParts int, ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		partSize: partSize,
		maxParts: maxParts,
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// PartSize returns the server-chosen fixed part size.
func (r *Registry) PartSize() int64 {
	return r.partSize
}

// Create validates the init parameters and registers a new session.
func (r *Registry) Create(targetName, mimeType string, declaredSize int64, uploaderEmail string) (Session, error) {
	if targetName == "" || declaredSize <= 0 {
		return Session{}, fmt.Errorf("%w: name and positive size required", ErrInvalidRequest)
	}
	if !AllowedType(mimeType) {
		return Session{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	totalParts := int((declaredSize + r.partSize - 1) / r.partSize)
	if totalParts > r.maxParts {
		return Session{}, fmt.Errorf("%w: file requires %d parts, limit is %d", ErrInvalidRequest, totalParts, r.maxParts)
	}

	now := r.nowFunc()
	parts := make([]PartRecord, totalParts)
	for i := range parts {
		parts[i] = PartRecord{PartNumber: i + 1}
	}

	session := Session{
		ID:            uuid.NewString(),
		TargetName:    targetName,
		MimeType:      mimeType,
		DeclaredSize:  declaredSize,
		PartSize:      r.partSize,
		TotalParts:    totalParts,
		Parts:         parts,
		Status:        StatusPending,
		UploaderEmail: uploaderEmail,
		CreatedAt:     now,
		ExpiresAt:     now.Add(r.ttl),
	}

	r.mu.Lock()
	r.sessions[session.ID] = &sessionEntry{data: session}
	r.mu.Unlock()

	return session, nil
}

// Get returns a snapshot of the session.
func (r *Registry) Get(id string) (Session, error) {
	entry, err := r.entry(id)
	if err != nil {
		return Session{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshot(entry.data), nil
}

// MarkPartUploaded flips the uploaded flag for a part. Re-marking an already
// uploaded part is idempotent. Status transitions are the coordinator's call.
func (r *Registry) MarkPartUploaded(id string, partNumber int, etag string) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if partNumber < 1 || partNumber > entry.data.TotalParts {
		return fmt.Errorf("%w: part %d outside [1, %d]", ErrSessionNotFound, partNumber, entry.data.TotalParts)
	}
	if entry.data.Status.terminal() {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, entry.data.Status)
	}

	entry.data.Parts[partNumber-1].Uploaded = true
	entry.data.Parts[partNumber-1].ETag = etag
	return nil
}

// Transition moves the session status to the target if the current status is
// one of the allowed origins. Already being at the target is a no-op.
func (r *Registry) Transition(id string, to Status, from ...Status) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.data.Status == to {
		return nil
	}
	for _, origin := range from {
		if entry.data.Status == origin {
			entry.data.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move %s session to %s", ErrInvalidState, entry.data.Status, to)
}

// ClaimAssembly atomically moves an uploading session to assembling. Unlike
// Transition this is a strict compare-and-set: a session already claimed by a
// concurrent completion is a conflict, so exactly one caller wins.
func (r *Registry) ClaimAssembly(id string) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.data.Status != StatusUploading {
		return fmt.Errorf("%w: cannot claim %s session for assembly", ErrInvalidState, entry.data.Status)
	}
	entry.data.Status = StatusAssembling
	return nil
}

// Remove deletes the session record. Removing an absent session is not an error.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// removeExpired drops every session past its expiry, regardless of status,
// and returns the removed IDs so part data can be cleaned up by the caller.
func (r *Registry) removeExpired(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, entry := range r.sessions {
		entry.mu.Lock()
		expired := now.After(entry.data.ExpiresAt)
		entry.mu.Unlock()
		if expired {
			delete(r.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) entry(id string) (*sessionEntry, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func snapshot(s Session) Session {
	out := s
	out.Parts = make([]PartRecord, len(s.Parts))
	copy(out.Parts, s.Parts)
	return out
}
