package stats

import (
	"context"
	"errors"
	"testing"
	"time"
)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
const mobileUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"

type fakeAssetIndex struct {
	known map[string]bool
	err   error
}

func (f *fakeAssetIndex) ShortCodeExists(_ context.Context, code string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[code], nil
}

type fakeSnapshotStore struct {
	saved   map[string]VisitStats
	deleted []string
	saveErr error
}

func newFakeSnapshotStore() *fakeSnapshotStore {
	return &fakeSnapshotStore{saved: map[string]VisitStats{}}
}

func (f *fakeSnapshotStore) Save(_ context.Context, stats VisitStats) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[stats.ShortCode] = stats
	return nil
}

func (f *fakeSnapshotStore) LoadAll(_ context.Context) ([]VisitStats, error) {
	var out []VisitStats
	for _, s := range f.saved {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSnapshotStore) Delete(_ context.Context, shortCode string) error {
	delete(f.saved, shortCode)
	f.deleted = append(f.deleted, shortCode)
	return nil
}

func TestRecordAggregatesVisitDimensions(t *testing.T) {
	index := &fakeAssetIndex{known: map[string]bool{"abc123": true}}
	recorder := NewRecorder(index, nil, nil, nil)
	ctx := context.Background()

	recorder.Record(ctx, "abc123", VisitContext{UserAgent: desktopUA, Referrer: "https://news.ycombinator.com/item?id=1"})
	recorder.Record(ctx, "abc123", VisitContext{UserAgent: mobileUA, Referrer: "https://twitter.com/share"})

	stats, err := recorder.Stats("abc123")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalVisits != 2 {
		t.Fatalf("expected 2 total visits, got %d", stats.TotalVisits)
	}
	if stats.Referrers["news.ycombinator.com"] != 1 || stats.Referrers["twitter.com"] != 1 {
		t.Fatalf("unexpected referrers: %v", stats.Referrers)
	}
	if stats.Devices["desktop"] != 1 || stats.Devices["mobile"] != 1 {
		t.Fatalf("unexpected device split: %v", stats.Devices)
	}

	day := time.Now().Format("2006-01-02")
	if stats.Daily[day] != 2 {
		t.Fatalf("expected 2 visits today, got %d", stats.Daily[day])
	}
	if stats.LastVisit.IsZero() {
		t.Fatalf("expected LastVisit to be set")
	}
}

func TestRecordClassifiesMissingReferrerAsDirect(t *testing.T) {
	index := &fakeAssetIndex{known: map[string]bool{"abc123": true}}
	recorder := NewRecorder(index, nil, nil, nil)

	recorder.Record(context.Background(), "abc123", VisitContext{UserAgent: desktopUA})
	recorder.Record(context.Background(), "abc123", VisitContext{UserAgent: desktopUA, Referrer: "not a url"})

	stats, err := recorder.Stats("abc123")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Referrers["direct"] != 2 {
		t.Fatalf("expected missing and unparsable referrers counted as direct, got %v", stats.Referrers)
	}
}

func TestRecordDropsUnknownShortCode(t *testing.T) {
	index := &fakeAssetIndex{known: map[string]bool{}}
	recorder := NewRecorder(index, nil, nil, nil)

	recorder.Record(context.Background(), "nope12", VisitContext{UserAgent: desktopUA})

	if _, err := recorder.Stats("nope12"); !errors.Is(err, ErrStatsNotFound) {
		t.Fatalf("expected ErrStatsNotFound for dropped visit, got %v", err)
	}
}

func TestRecordSurvivesSnapshotFailure(t *testing.T) {
	index := &fakeAssetIndex{known: map[string]bool{"abc123": true}}
	snaps := newFakeSnapshotStore()
	snaps.saveErr = errors.New("database down")
	recorder := NewRecorder(index, snaps, nil, nil)

	recorder.Record(context.Background(), "abc123", VisitContext{UserAgent: desktopUA})

	stats, err := recorder.Stats("abc123")
	if err != nil {
		t.Fatalf("in-memory stats must survive snapshot failure: %v", err)
	}
	if stats.TotalVisits != 1 {
		t.Fatalf("expected 1 visit, got %d", stats.TotalVisits)
	}
}

func TestRestoreLoadsSnapshots(t *testing.T) {
	index := &fakeAssetIndex{known: map[string]bool{"abc123": true}}
	snaps := newFakeSnapshotStore()

	first := NewRecorder(index, snaps, nil, nil)
	first.Record(context.Background(), "abc123", VisitContext{UserAgent: desktopUA, Referrer: "https://example.com/page"})

	second := NewRecorder(index, snaps, nil, nil)
	if err := second.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	stats, err := second.Stats("abc123")
	if err != nil {
		t.Fatalf("Stats after restore returned error: %v", err)
	}
	if stats.TotalVisits != 1 || stats.Referrers["example.com"] != 1 {
		t.Fatalf("restored stats incomplete: %+v", stats)
	}
}

func TestForgetDropsMemoryAndSnapshot(t *testing.T) {
	index := &fakeAssetIndex{known: map[string]bool{"abc123": true}}
	snaps := newFakeSnapshotStore()
	recorder := NewRecorder(index, snaps, nil, nil)
	ctx := context.Background()

	recorder.Record(ctx, "abc123", VisitContext{UserAgent: desktopUA})
	recorder.Forget(ctx, "abc123")

	if _, err := recorder.Stats("abc123"); !errors.Is(err, ErrStatsNotFound) {
		t.Fatalf("expected ErrStatsNotFound after Forget, got %v", err)
	}
	if len(snaps.deleted) != 1 || snaps.deleted[0] != "abc123" {
		t.Fatalf("expected snapshot deleted, got %v", snaps.deleted)
	}
}

func TestReferrerDomain(t *testing.T) {
	cases := []struct {
		referrer string
		want     string
	}{
		{"", "direct"},
		{"https://example.com/path?q=1", "example.com"},
		{"http://sub.example.com:8080/", "sub.example.com"},
		{"not a url", "direct"},
		{"%%invalid%%://", "direct"},
	}

	for _, tc := range cases {
		if got := referrerDomain(tc.referrer); got != tc.want {
			t.Fatalf("referrerDomain(%q) = %q, want %q", tc.referrer, got, tc.want)
		}
	}
}

func TestClassifyDevice(t *testing.T) {
	if got := classifyDevice(mobileUA); got != "mobile" {
		t.Fatalf("expected mobile, got %q", got)
	}
	if got := classifyDevice(desktopUA); got != "desktop" {
		t.Fatalf("expected desktop, got %q", got)
	}
	if got := classifyDevice(""); got != "unknown" {
		t.Fatalf("expected unknown for empty UA, got %q", got)
	}
}
