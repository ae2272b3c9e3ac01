// Package availability turns a resampled series into the time intervals
// during which data was present, for Gantt-style coverage charts.
package availability

import (
	"time"

	"github.com/oceanobs/seaportal/pkg/series"
)

// Interval is a closed range of bucket timestamps with uninterrupted
// data coverage. Start and End are both bucket times on the rule's grid;
// a single covered bucket yields Start == End.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Extract walks the resampled buckets in order and emits one interval per
// maximal run of non-empty buckets. When a gap ends a run, the interval
// closes on the last covered bucket, not on the gap. A run still open at
// the end of the series is flushed with the final bucket as its end, so a
// series with no gaps at all collapses to a single first-to-last interval.
// An empty or all-empty series yields no intervals.
func Extract(buckets []series.Bucket) []Interval {
	var intervals []Interval
	var start, prev time.Time
	inside := false

	for _, b := range buckets {
		present := b.Count > 0
		switch {
		case present && !inside:
			start = b.Time
			prev = b.Time
			inside = true
		case present && inside:
			prev = b.Time
		case !present && inside:
			intervals = append(intervals, Interval{Start: start, End: prev})
			inside = false
		}
	}
	if inside {
		intervals = append(intervals, Interval{Start: start, End: prev})
	}
	return intervals
}
