package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/picshare/picshare/internal/image/processor"
	"github.com/picshare/picshare/internal/upload"
	"go.uber.org/zap"
)

const (
	defaultMaxFileSize = 50 * 1024 * 1024 // direct uploads only; chunked path is bounded by part policy
	uploadPrefix       = "uploads"
)

var extensionByMime = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type assetStore interface {
	Create(ctx context.Context, asset Asset) (Asset, error)
	GetByShortCode(ctx context.Context, shortCode string) (Asset, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	DeleteByShortCode(ctx context.Context, shortCode string) (Asset, error)
	ListByUploader(ctx context.Context, email string) ([]Asset, error)
	ListByBatch(ctx context.Context, batchID string) ([]Asset, error)
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Service manages asset publication and resolution.
type Service struct {
	repo         assetStore
	objectStore  objectStore
	pipeline     *processor.Pipeline
	issuer       *ShortCodeIssuer
	objectBucket string
	urlExpiry    time.Duration
	maxFileSize  int64
	log          *zap.Logger
}

// NewService constructs an image service.
func NewService(repo assetStore, store objectStore, pipeline *processor.Pipeline, issuer *ShortCodeIssuer, objectBucket string, urlExpiry time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:         repo,
		objectStore:  store,
		pipeline:     pipeline,
		issuer:       issuer,
		objectBucket: objectBucket,
		urlExpiry:    urlExpiry,
		maxFileSize:  defaultMaxFileSize,
		log:          log,
	}
}

// Publish satisfies the upload coordinator's publication contract: it runs
// the assembled bytes through the processing pipeline, stores the object and
// creates the metadata record.
func (s *Service) Publish(ctx context.Context, input upload.PublishInput) (upload.PublishedAsset, error) {
	asset, assetURL, err := s.publish(ctx, input.Data, input.MimeType, input.OriginalName, input.UploaderEmail, "")
	if err != nil {
		return upload.PublishedAsset{}, err
	}
	return upload.PublishedAsset{ShortCode: asset.ShortCode, URL: assetURL}, nil
}

// UploadDirect publishes a small file in one request.
func (s *Service) UploadDirect(ctx context.Context, data []byte, mimeType, originalName, uploaderEmail string) (Asset, string, error) {
	if !upload.AllowedType(mimeType) {
		return Asset{}, "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if int64(len(data)) > s.maxFileSize {
		return Asset{}, "", fmt.Errorf("%w: file exceeds %d bytes", ErrUnsupportedType, s.maxFileSize)
	}
	return s.publish(ctx, data, mimeType, originalName, uploaderEmail, "")
}

// BatchFile is one member of a batch upload.
type BatchFile struct {
	Data         []byte
	MimeType     string
	OriginalName string
}

// BatchResult references one published member of a batch.
type BatchResult struct {
	Asset Asset  `json:"image"`
	URL   string `json:"url"`
}

// UploadBatch publishes up to maxBatchSize files under a shared batch ID.
func (s *Service) UploadBatch(ctx context.Context, files []BatchFile, uploaderEmail string) (string, []BatchResult, error) {
	if len(files) == 0 {
		return "", nil, fmt.Errorf("%w: empty batch", ErrUnsupportedType)
	}

	batchID := uuid.NewString()[:8]
	results := make([]BatchResult, 0, len(files))
	for _, file := range files {
		if !upload.AllowedType(file.MimeType) {
			return "", nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, file.OriginalName, file.MimeType)
		}
		asset, assetURL, err := s.publish(ctx, file.Data, file.MimeType, file.OriginalName, uploaderEmail, batchID)
		if err != nil {
			return "", nil, err
		}
		results = append(results, BatchResult{Asset: asset, URL: assetURL})
	}
	return batchID, results, nil
}

// Resolve looks an asset up by short code and returns a signed URL for it.
func (s *Service) Resolve(ctx context.Context, shortCode string) (Asset, string, error) {
	asset, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		return Asset{}, "", err
	}

	assetURL, err := s.signURL(ctx, asset.StorageKey)
	if err != nil {
		return Asset{}, "", err
	}
	return asset, assetURL, nil
}

// History lists a user's uploads, newest first.
func (s *Service) History(ctx context.Context, email string) ([]Asset, error) {
	return s.repo.ListByUploader(ctx, email)
}

// Batch lists the assets published under one batch ID.
func (s *Service) Batch(ctx context.Context, batchID string) ([]Asset, error) {
	assets, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, ErrAssetNotFound
	}
	return assets, nil
}

// Delete removes the object and its metadata record.
func (s *Service) Delete(ctx context.Context, shortCode string) error {
	asset, err := s.repo.DeleteByShortCode(ctx, shortCode)
	if err != nil {
		return err
	}
	if err := s.objectStore.RemoveObject(ctx, s.objectBucket, asset.StorageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, data []byte, mimeType, originalName, uploaderEmail, batchID string) (Asset, string, error) {
	processed, finalType, err := s.pipeline.Process(data, mimeType)
	if err != nil {
		return Asset{}, "", fmt.Errorf("process image: %w", err)
	}

	shortCode, err := s.issuer.Issue(ctx)
	if err != nil {
		return Asset{}, "", err
	}

	ext := extensionByMime[finalType]
	if ext == "" {
		ext = "bin"
	}
	storageKey := fmt.Sprintf("%s/%s.%s", uploadPrefix, shortCode, ext)

	_, err = s.objectStore.PutObject(ctx, s.objectBucket, storageKey,
		bytes.NewReader(processed), int64(len(processed)), minio.PutObjectOptions{ContentType: finalType})
	if err != nil {
		return Asset{}, "", fmt.Errorf("store object: %w", err)
	}

	asset := Asset{
		ID:            uuid.New(),
		StorageKey:    storageKey,
		OriginalName:  originalName,
		MimeType:      finalType,
		SizeBytes:     int64(len(processed)),
		ShortCode:     shortCode,
		UploaderEmail: uploaderEmail,
		BatchID:       batchID,
	}

	stored, err := s.repo.Create(ctx, asset)
	if err != nil {
		_ = s.objectStore.RemoveObject(ctx, s.objectBucket, storageKey, minio.RemoveObjectOptions{})
		return Asset{}, "", err
	}

	assetURL, err := s.signURL(ctx, storageKey)
	if err != nil {
		return Asset{}, "", err
	}

	s.log.Info("asset published",
		zap.String("short_code", shortCode),
		zap.String("storage_key", storageKey),
		zap.Int64("size_bytes", stored.SizeBytes),
	)

	return stored, assetURL, nil
}

func (s *Service) signURL(ctx context.Context, storageKey string) (string, error) {
	signed, err := s.objectStore.PresignedGetObject(ctx, s.objectBucket, storageKey, s.urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("sign asset url: %w", err)
	}
	return signed.String(), nil
}
