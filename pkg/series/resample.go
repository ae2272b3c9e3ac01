package series

import (
	"sort"
	"time"

	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
)

// Bucket is one slot of a resampled series on the rule's regular grid.
// Count is zero for grid slots no measurement fell into; Mean is only
// meaningful when Count is positive.
type Bucket struct {
	Time  time.Time
	Mean  float64
	Count int
}

// Resample averages measurements onto the regular time grid of the rule.
// The grid spans from the floor of the earliest timestamp to the bucket
// holding the latest one, with every intermediate slot present even when
// empty; the availability extractor relies on those gaps. Raw series are
// resampled hourly. An empty input yields an empty grid.
func Resample(ms []measurement.Measurement, r granularity.Rule) []Bucket {
	if len(ms) == 0 {
		return nil
	}

	sorted := make([]measurement.Measurement, len(ms))
	copy(sorted, ms)
	sortByTime(sorted)

	if r == granularity.M {
		return resampleMonthly(sorted)
	}

	step, ok := granularity.BucketDuration(r)
	if !ok {
		step = time.Hour
	}

	first := sorted[0].Time.UTC().Truncate(step)
	last := sorted[len(sorted)-1].Time.UTC().Truncate(step)

	n := int(last.Sub(first)/step) + 1
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Time = first.Add(time.Duration(i) * step)
	}

	sums := make([]float64, n)
	for _, m := range sorted {
		i := int(m.Time.UTC().Truncate(step).Sub(first) / step)
		sums[i] += m.Value
		buckets[i].Count++
	}
	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].Mean = sums[i] / float64(buckets[i].Count)
		}
	}
	return buckets
}

// resampleMonthly buckets on calendar months, which have no fixed
// duration.
func resampleMonthly(sorted []measurement.Measurement) []Bucket {
	first := monthFloor(sorted[0].Time)
	last := monthFloor(sorted[len(sorted)-1].Time)

	var buckets []Bucket
	index := make(map[time.Time]int)
	for t := first; !t.After(last); t = t.AddDate(0, 1, 0) {
		index[t] = len(buckets)
		buckets = append(buckets, Bucket{Time: t})
	}

	sums := make([]float64, len(buckets))
	for _, m := range sorted {
		i := index[monthFloor(m.Time)]
		sums[i] += m.Value
		buckets[i].Count++
	}
	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].Mean = sums[i] / float64(buckets[i].Count)
		}
	}
	return buckets
}

func monthFloor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SplitByPair groups a combined series back into per-pair series, with a
// stable, sorted pair order. Chart builders plot one trace per pair.
func SplitByPair(ms []measurement.Measurement) (pairs []Pair, byPair map[Pair][]measurement.Measurement) {
	byPair = make(map[Pair][]measurement.Measurement)
	for _, m := range ms {
		p := Pair{Platform: m.PlatformCode, Parameter: m.Parameter}
		byPair[p] = append(byPair[p], m)
	}
	for p := range byPair {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Platform != pairs[j].Platform {
			return pairs[i].Platform < pairs[j].Platform
		}
		return pairs[i].Parameter < pairs[j].Parameter
	})
	return pairs, byPair
}

// Pair identifies one platform/parameter series.
type Pair struct {
	Platform  string
	Parameter string
}

// Label renders the pair for trace legends.
func (p Pair) Label() string {
	return p.Platform + " " + p.Parameter
}
