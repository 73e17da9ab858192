package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PublishInput carries an assembled file to the asset publication step.
type PublishInput struct {
	Data          []byte
	MimeType      string
	OriginalName  string
	UploaderEmail string
}

// PublishedAsset is the public reference returned after publication.
type PublishedAsset struct {
	ShortCode string
	URL       string
}

// AssetPublisher is the publication collaborator. Transformations applied on
// the way to storage are opaque to the coordinator.
type AssetPublisher interface {
	Publish(ctx context.Context, input PublishInput) (PublishedAsset, error)
}

// Coordinator validates session creation, accepts parts, tracks completion,
// performs final assembly and triggers cleanup.
type Coordinator struct {
	registry  *Registry
	store     PartStore
	publisher AssetPublisher
	log       *zap.Logger
}

// NewCoordinator wires the upload core.
func NewCoordinator(registry *Registry, store PartStore, publisher AssetPublisher, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		registry:  registry,
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// InitResult is returned from InitUpload.
type InitResult struct {
	ID         string `json:"upload_id"`
	PartSize   int64  `json:"chunk_size"`
	TotalParts int    `json:"total_chunks"`
}

// CompleteResult is returned from CompleteUpload.
type CompleteResult struct {
	ShortCode string `json:"short_code"`
	URL       string `json:"image_url"`
}

// InitUpload registers a new session. The part size is fixed server-side.
func (c *Coordinator) InitUpload(_ context.Context, name, mimeType string, size int64, uploaderEmail string) (InitResult, error) {
	session, err := c.registry.Create(name, mimeType, size, uploaderEmail)
	if err != nil {
		return InitResult{}, err
	}

	c.log.Debug("upload session created",
		zap.String("upload_id", session.ID),
		zap.Int("total_parts", session.TotalParts),
		zap.Int64("declared_size", session.DeclaredSize),
	)

	return InitResult{
		ID:         session.ID,
		PartSize:   session.PartSize,
		TotalParts: session.TotalParts,
	}, nil
}

// AcceptPart stores part bytes, then marks the part uploaded. The write-then-
// record ordering guarantees the registry never reports a part whose bytes are
// not durably stored. Duplicate parts are overwritten idempotently.
func (c *Coordinator) AcceptPart(ctx context.Context, id string, partNumber int, data []byte) (Progress, error) {
	session, err := c.registry.Get(id)
	if err != nil {
		return Progress{}, err
	}

	if partNumber < 1 || partNumber > session.TotalParts {
		return Progress{}, fmt.Errorf("%w: part %d outside [1, %d]", ErrSessionNotFound, partNumber, session.TotalParts)
	}
	if session.Status.terminal() || session.Status == StatusAssembling {
		return Progress{}, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if len(data) == 0 {
		return Progress{}, fmt.Errorf("%w: empty part", ErrInvalidRequest)
	}
	// An undersized non-final part would silently corrupt assembly.
	if partNumber < session.TotalParts && int64(len(data)) != session.PartSize {
		return Progress{}, fmt.Errorf("%w: part %d is %d bytes, expected %d", ErrInvalidRequest, partNumber, len(data), session.PartSize)
	}
	if int64(len(data)) > session.PartSize {
		return Progress{}, fmt.Errorf("%w: part %d exceeds part size", ErrInvalidRequest, partNumber)
	}

	etag, err := c.store.Put(ctx, id, partNumber, data)
	if err != nil {
		return Progress{}, err
	}

	if err := c.registry.MarkPartUploaded(id, partNumber, etag); err != nil {
		// The session may have been swept between the write and the record.
		// No future sweep covers a gone session, so drop the bytes here; the
		// client restarts with a new session.
		if errors.Is(err, ErrSessionNotFound) {
			if cleanupErr := c.store.DeleteAll(ctx, id); cleanupErr != nil {
				c.log.Warn("cleanup after swept session failed",
					zap.String("upload_id", id),
					zap.Error(cleanupErr),
				)
			}
		}
		return Progress{}, err
	}
	if err := c.registry.Transition(id, StatusUploading, StatusPending); err != nil {
		return Progress{}, err
	}

	return c.GetProgress(ctx, id)
}

// CompleteUpload claims the session, assembles the parts in part-number order
// and publishes the result. Exactly one concurrent caller wins the claim; the
// loser observes ErrInvalidState. On assembly or publication failure the
// session moves to failed and part data is retained for inspection or retry.
func (c *Coordinator) CompleteUpload(ctx context.Context, id string) (CompleteResult, error) {
	session, err := c.registry.Get(id)
	if err != nil {
		return CompleteResult{}, err
	}
	if session.Status.terminal() {
		return CompleteResult{}, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if !session.Complete() {
		return CompleteResult{}, fmt.Errorf("%w: %d of %d parts uploaded", ErrIncomplete, session.UploadedParts(), session.TotalParts)
	}

	// Claim before assembly so two near-simultaneous completions cannot both
	// publish.
	if err := c.registry.ClaimAssembly(id); err != nil {
		return CompleteResult{}, err
	}

	data, err := assemble(ctx, c.store, id, session.TotalParts)
	if err != nil {
		c.fail(id)
		return CompleteResult{}, err
	}

	published, err := c.publisher.Publish(ctx, PublishInput{
		Data:          data,
		MimeType:      session.MimeType,
		OriginalName:  session.TargetName,
		UploaderEmail: session.UploaderEmail,
	})
	if err != nil {
		c.fail(id)
		return CompleteResult{}, fmt.Errorf("publish asset: %w", err)
	}

	if err := c.registry.Transition(id, StatusCompleted, StatusAssembling); err != nil {
		return CompleteResult{}, err
	}
	if err := c.store.DeleteAll(ctx, id); err != nil {
		c.log.Warn("cleanup of completed session parts failed", zap.String("upload_id", id), zap.Error(err))
	}
	c.registry.Remove(id)

	c.log.Info("upload completed",
		zap.String("upload_id", id),
		zap.String("short_code", published.ShortCode),
		zap.Int("total_parts", session.TotalParts),
	)

	return CompleteResult{ShortCode: published.ShortCode, URL: published.URL}, nil
}

// GetProgress reports completion state. Once a session has completed and been
// removed this returns ErrSessionNotFound; pollers treat that as finished.
func (c *Coordinator) GetProgress(_ context.Context, id string) (Progress, error) {
	session, err := c.registry.Get(id)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		Percent:       session.ProgressPercent(),
		UploadedParts: session.UploadedParts(),
		TotalParts:    session.TotalParts,
		Status:        session.Status,
	}, nil
}

// SweepExpired removes every session past its expiry, deleting stored parts,
// and returns the number of sessions removed.
func (c *Coordinator) SweepExpired(ctx context.Context, now time.Time) int {
	removed := c.registry.removeExpired(now)
	for _, id := range removed {
		if err := c.store.DeleteAll(ctx, id); err != nil {
			c.log.Warn("cleanup of expired session parts failed", zap.String("upload_id", id), zap.Error(err))
		}
	}
	if len(removed) > 0 {
		c.log.Info("swept expired upload sessions", zap.Int("count", len(removed)))
	}
	return len(removed)
}

// RunSweeper periodically sweeps expired sessions until the context is done.
// It runs independently of request handling; a session mid-upload but past
// expiry is swept, and later part uploads for it fail with not-found.
func (c *Coordinator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.SweepExpired(ctx, now)
		}
	}
}

func (c *Coordinator) fail(id string) {
	if err := c.registry.Transition(id, StatusFailed, StatusAssembling, StatusUploading, StatusPending); err != nil {
		c.log.Warn("could not mark session failed", zap.String("upload_id", id), zap.Error(err))
	}
}
