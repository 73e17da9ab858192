package stats

import "errors"

// ErrStatsNotFound signals that no visits were recorded for the short code.
var ErrStatsNotFound = errors.New("stats not found")
