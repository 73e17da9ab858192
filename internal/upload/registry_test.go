package upload

import (
	"errors"
	"testing"
	"time"
)

const (
	testPartSize = 5 * 1024 * 1024
	testMaxParts = 100
	testTTL      = 24 * time.Hour
)

func TestCreateComputesPartCount(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)

	cases := []struct {
		name  string
		size  int64
		parts int
	}{
		{"exact multiple", 10 * 1024 * 1024, 2},
		{"partial final part", 12 * 1024 * 1024, 3},
		{"smaller than one part", 1024, 1},
		{"one byte over a boundary", testPartSize + 1, 2},
	}

	for _, tc := range cases {
		session, err := registry.Create("photo.jpg", "image/jpeg", tc.size, "")
		if err != nil {
			t.Fatalf("%s: Create returned error: %v", tc.name, err)
		}
		if session.TotalParts != tc.parts {
			t.Fatalf("%s: expected %d parts for %d bytes, got %d", tc.name, tc.parts, tc.size, session.TotalParts)
		}
		if session.Status != StatusPending {
			t.Fatalf("%s: expected pending status, got %s", tc.name, session.Status)
		}
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)

	if _, err := registry.Create("", "image/jpeg", 1024, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty name, got %v", err)
	}
	if _, err := registry.Create("photo.jpg", "image/jpeg", 0, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero size, got %v", err)
	}
	if _, err := registry.Create("doc.pdf", "application/pdf", 1024, ""); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType for pdf, got %v", err)
	}

	tooLarge := int64(testMaxParts)*testPartSize + 1
	if _, err := registry.Create("huge.png", "image/png", tooLarge, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for oversized file, got %v", err)
	}
}

func TestMarkPartUploadedIsIdempotent(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)
	session, err := registry.Create("photo.jpg", "image/jpeg", 12*1024*1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := registry.MarkPartUploaded(session.ID, 1, "etag-a"); err != nil {
		t.Fatalf("first mark returned error: %v", err)
	}
	if err := registry.MarkPartUploaded(session.ID, 1, "etag-b"); err != nil {
		t.Fatalf("repeat mark returned error: %v", err)
	}

	got, err := registry.Get(session.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.UploadedParts() != 1 {
		t.Fatalf("expected 1 uploaded part after duplicate mark, got %d", got.UploadedParts())
	}
}

func TestMarkPartUploadedRejectsOutOfRange(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)
	session, err := registry.Create("photo.jpg", "image/jpeg", 12*1024*1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := registry.MarkPartUploaded(session.ID, 0, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for part 0, got %v", err)
	}
	if err := registry.MarkPartUploaded(session.ID, session.TotalParts+1, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for part beyond total, got %v", err)
	}

	got, _ := registry.Get(session.ID)
	if got.UploadedParts() != 0 {
		t.Fatalf("rejected parts must not mutate state, got %d uploaded", got.UploadedParts())
	}
}

func TestClaimAssemblyAllowsExactlyOneWinner(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)
	session, err := registry.Create("photo.jpg", "image/jpeg", 1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := registry.Transition(session.ID, StatusUploading, StatusPending); err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}

	if err := registry.ClaimAssembly(session.ID); err != nil {
		t.Fatalf("first claim returned error: %v", err)
	}
	if err := registry.ClaimAssembly(session.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for second claim, got %v", err)
	}
}

func TestTransitionRejectsInvalidOrigin(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)
	session, err := registry.Create("photo.jpg", "image/jpeg", 1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := registry.Transition(session.ID, StatusCompleted, StatusAssembling); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState moving pending to completed, got %v", err)
	}
}

func TestRemoveExpiredDropsOnlyExpiredSessions(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)

	now := time.Now()
	registry.nowFunc = func() time.Time { return now }
	expired, err := registry.Create("old.jpg", "image/jpeg", 1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	registry.nowFunc = func() time.Time { return now.Add(time.Hour) }
	fresh, err := registry.Create("new.jpg", "image/jpeg", 1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	removed := registry.removeExpired(now.Add(testTTL + time.Minute))
	if len(removed) != 1 || removed[0] != expired.ID {
		t.Fatalf("expected only %s removed, got %v", expired.ID, removed)
	}

	if _, err := registry.Get(expired.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session gone, got %v", err)
	}
	if _, err := registry.Get(fresh.ID); err != nil {
		t.Fatalf("fresh session must survive sweep: %v", err)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	registry := NewRegistry(testPartSize, testMaxParts, testTTL)
	session, err := registry.Create("photo.jpg", "image/jpeg", 12*1024*1024, "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, _ := registry.Get(session.ID)
	first.Parts[0].Uploaded = true

	second, _ := registry.Get(session.ID)
	if second.Parts[0].Uploaded {
		t.Fatalf("mutating a snapshot must not affect registry state")
	}
}
