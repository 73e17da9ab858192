package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/minio/minio-go/v7"
)

// PartStore holds raw part bytes keyed by (session, part number).
type PartStore interface {
	Put(ctx context.Context, sessionID string, partNumber int, data []byte) (etag string, err error)
	Get(ctx context.Context, sessionID string, partNumber int) ([]byte, error)
	DeleteAll(ctx context.Context, sessionID string) error
}

const chunkPrefix = "chunks"

func chunkKey(sessionID string, partNumber int) string {
	return fmt.Sprintf("%s/%s/%d", chunkPrefix, sessionID, partNumber)
}

// MinIOPartStore keeps part bytes as objects under a chunks/ prefix.
type MinIOPartStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOPartStore constructs an object-storage backed part store.
func NewMinIOPartStore(client *minio.Client, bucket string) *MinIOPartStore {
	return &MinIOPartStore{client: client, bucket: bucket}
}

func (s *MinIOPartStore) Put(ctx context.Context, sessionID string, partNumber int, data []byte) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, chunkKey(sessionID, partNumber),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("store part %d: %w", partNumber, err)
	}
	return info.ETag, nil
}

func (s *MinIOPartStore) Get(ctx context.Context, sessionID string, partNumber int) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, chunkKey(sessionID, partNumber), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: part %d: %v", ErrMissingPart, partNumber, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("%w: part %d: %v", ErrMissingPart, partNumber, err)
	}
	return data, nil
}

func (s *MinIOPartStore) DeleteAll(ctx context.Context, sessionID string) error {
	prefix := fmt.Sprintf("%s/%s/", chunkPrefix, sessionID)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return fmt.Errorf("list parts for %s: %w", sessionID, object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove part %s: %w", object.Key, err)
		}
	}
	return nil
}

// MemoryPartStore keeps parts in process memory. Used by tests and available
// as a backend for single-instance deployments without object storage.
type MemoryPartStore struct {
	mu    sync.RWMutex
	parts map[string]map[int][]byte
}

// NewMemoryPartStore constructs an empty in-memory part store.
func NewMemoryPartStore() *MemoryPartStore {
	return &MemoryPartStore{parts: make(map[string]map[int][]byte)}
}

func (s *MemoryPartStore) Put(_ context.Context, sessionID string, partNumber int, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.parts[sessionID] == nil {
		s.parts[sessionID] = make(map[int][]byte)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.parts[sessionID][partNumber] = buf
	return fmt.Sprintf("mem-%s-%d", sessionID, partNumber), nil
}

func (s *MemoryPartStore) Get(_ context.Context, sessionID string, partNumber int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.parts[sessionID][partNumber]
	if !ok {
		return nil, fmt.Errorf("%w: part %d", ErrMissingPart, partNumber)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *MemoryPartStore) DeleteAll(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.parts, sessionID)
	s.mu.Unlock()
	return nil
}

// PartNumbers lists stored part numbers for a session, ascending. Test helper.
func (s *MemoryPartStore) PartNumbers(sessionID string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var numbers []int
	for n := range s.parts[sessionID] {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
