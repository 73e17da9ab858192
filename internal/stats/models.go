package stats

import "time"

// VisitContext carries the request attributes a visit is classified from.
type VisitContext struct {
	UserAgent string
	Referrer  string
	RemoteIP  string
}

// VisitStats aggregates visits for one asset. Counters only ever increase.
type VisitStats struct {
	ShortCode   string           `json:"short_code"`
	TotalVisits int64            `json:"total_visits"`
	Referrers   map[string]int64 `json:"referrers"`
	Devices     map[string]int64 `json:"devices"`
	Countries   map[string]int64 `json:"countries"`
	Daily       map[string]int64 `json:"daily"` // keyed YYYY-MM-DD
	LastVisit   time.Time        `json:"last_visit"`
}

func newVisitStats(shortCode string) *VisitStats {
	return &VisitStats{
		ShortCode: shortCode,
		Referrers: make(map[string]int64),
		Devices:   make(map[string]int64),
		Countries: make(map[string]int64),
		Daily:     make(map[string]int64),
	}
}

// clone returns a deep copy safe to hand out.
func (v *VisitStats) clone() VisitStats {
	out := VisitStats{
		ShortCode:   v.ShortCode,
		TotalVisits: v.TotalVisits,
		Referrers:   make(map[string]int64, len(v.Referrers)),
		Devices:     make(map[string]int64, len(v.Devices)),
		Countries:   make(map[string]int64, len(v.Countries)),
		Daily:       make(map[string]int64, len(v.Daily)),
		LastVisit:   v.LastVisit,
	}
	for k, c := range v.Referrers {
		out.Referrers[k] = c
	}
	for k, c := range v.Devices {
		out.Devices[k] = c
	}
	for k, c := range v.Countries {
		out.Countries[k] = c
	}
	for k, c := range v.Daily {
		out.Daily[k] = c
	}
	return out
}
