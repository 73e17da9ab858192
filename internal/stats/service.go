package stats

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/mssola/user_agent"
	"github.com/picshare/picshare/internal/metrics"
	"go.uber.org/zap"
)

// assetIndex answers whether a short code refers to a known asset.
type assetIndex interface {
	ShortCodeExists(ctx context.Context, code string) (bool, error)
}

// snapshotStore persists aggregated stats so they survive restarts. All
// snapshot writes are best-effort; the in-memory copy stays authoritative.
type snapshotStore interface {
	Save(ctx context.Context, stats VisitStats) error
	LoadAll(ctx context.Context) ([]VisitStats, error)
	Delete(ctx context.Context, shortCode string) error
}

// Recorder aggregates visit events per asset in memory. Analytics failures
// are logged and never surfaced: recording must not block asset resolution.
type Recorder struct {
	mu     sync.Mutex
	stats  map[string]*VisitStats
	assets assetIndex
	snaps  snapshotStore
	geo    CountryResolver
	log    *zap.Logger
	now    func() time.Time
}

// NewRecorder builds a recorder. Both snaps and geo may be nil.
func NewRecorder(assets assetIndex, snaps snapshotStore, geo CountryResolver, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		stats:  make(map[string]*VisitStats),
		assets: assets,
		snaps:  snaps,
		geo:    geo,
		log:    log,
		now:    time.Now,
	}
}

// Restore loads persisted snapshots into memory. Called once at startup.
func (r *Recorder) Restore(ctx context.Context) error {
	if r.snaps == nil {
		return nil
	}
	loaded, err := r.snaps.LoadAll(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range loaded {
		entry := loaded[i].clone()
		r.stats[entry.ShortCode] = &entry
	}
	return nil
}

// Record classifies and counts one visit. Unknown short codes are dropped
// with a log line, never an error.
func (r *Recorder) Record(ctx context.Context, shortCode string, visit VisitContext) {
	if r.assets != nil {
		known, err := r.assets.ShortCodeExists(ctx, shortCode)
		if err != nil {
			r.log.Warn("stats asset lookup failed", zap.String("short_code", shortCode), zap.Error(err))
			return
		}
		if !known {
			r.log.Debug("visit for unknown short code dropped", zap.String("short_code", shortCode))
			return
		}
	}

	device := classifyDevice(visit.UserAgent)
	referrer := referrerDomain(visit.Referrer)
	country := r.lookupCountry(visit.RemoteIP)
	now := r.now()
	day := now.Format("2006-01-02")

	r.mu.Lock()
	entry, ok := r.stats[shortCode]
	if !ok {
		entry = newVisitStats(shortCode)
		r.stats[shortCode] = entry
	}
	entry.TotalVisits++
	entry.Referrers[referrer]++
	entry.Devices[device]++
	if country != "" {
		entry.Countries[country]++
	}
	entry.Daily[day]++
	entry.LastVisit = now
	snapshot := entry.clone()
	r.mu.Unlock()

	metrics.CountVisit()

	if r.snaps != nil {
		if err := r.snaps.Save(ctx, snapshot); err != nil {
			r.log.Warn("stats snapshot failed", zap.String("short_code", shortCode), zap.Error(err))
		}
	}
}

// Stats returns the aggregate for one asset.
func (r *Recorder) Stats(shortCode string) (VisitStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.stats[shortCode]
	if !ok {
		return VisitStats{}, ErrStatsNotFound
	}
	return entry.clone(), nil
}

// Forget drops an asset's stats, in memory and in the snapshot store.
func (r *Recorder) Forget(ctx context.Context, shortCode string) {
	r.mu.Lock()
	delete(r.stats, shortCode)
	r.mu.Unlock()

	if r.snaps != nil {
		if err := r.snaps.Delete(ctx, shortCode); err != nil {
			r.log.Warn("stats snapshot delete failed", zap.String("short_code", shortCode), zap.Error(err))
		}
	}
}

func (r *Recorder) lookupCountry(remoteIP string) string {
	if r.geo == nil || remoteIP == "" {
		return ""
	}
	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return ""
	}
	code, err := r.geo.Country(ip)
	if err != nil {
		return ""
	}
	return code
}

// classifyDevice buckets a user agent into mobile, desktop or unknown.
func classifyDevice(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	ua := user_agent.New(rawUA)
	if ua.Mobile() {
		return "mobile"
	}
	if os := ua.OS(); os != "" {
		return "desktop"
	}
	return "unknown"
}

// referrerDomain extracts the host of the referring page. Absent and
// unparsable referrers both count as direct traffic.
func referrerDomain(referrer string) string {
	if referrer == "" {
		return "direct"
	}
	parsed, err := url.Parse(referrer)
	if err != nil || parsed.Host == "" {
		return "direct"
	}
	return parsed.Hostname()
}
