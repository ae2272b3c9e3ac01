// Package series materializes measurement series at a chosen granularity:
// fetch, outlier rejection, dedupe, time ordering, per-pair disk caching,
// and resampling onto the rule's regular time grid.
package series

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/store"
)

// Assembler builds measurement series from the store.
type Assembler struct {
	store    store.Store
	cache    *cache.Disk
	outliers []OutlierRule
}

// NewAssembler creates an assembler with the default outlier rules.
// The cache may be nil to disable series caching.
func NewAssembler(st store.Store, c *cache.Disk) *Assembler {
	return &Assembler{store: st, cache: c, outliers: DefaultOutlierRules()}
}

// SetOutlierRules replaces the outlier predicate set.
func (a *Assembler) SetOutlierRules(rules []OutlierRule) {
	a.outliers = rules
}

// Assemble fetches, cleans and merges the records for every
// platform/parameter pair at the given rule. The result is sorted by time
// and free of duplicate identity keys. An empty result is valid: no
// records, or none surviving the outlier rules, is not an error.
//
// A record listed by the store but missing on direct fetch surfaces as
// store.ErrConsistency; assembly never silently drops mid-flight.
func (a *Assembler) Assemble(ctx context.Context, platforms, parameters []string, r granularity.Rule, f measurement.Filter) ([]measurement.Measurement, error) {
	var combined []measurement.Measurement

	for _, platform := range platforms {
		for _, parameter := range parameters {
			part, err := a.assemblePair(ctx, platform, parameter, r, f)
			if err != nil {
				return nil, err
			}
			combined = append(combined, part...)
		}
	}

	combined = dedupe(combined)
	sortByTime(combined)
	return combined, nil
}

// assemblePair builds the series for one platform/parameter pair,
// consulting the disk cache before touching the store and persisting the
// cleaned partial on a miss.
func (a *Assembler) assemblePair(ctx context.Context, platform, parameter string, r granularity.Rule, f measurement.Filter) ([]measurement.Measurement, error) {
	key := Key(platform, parameter, r, f)

	if a.cache != nil && a.cache.Exists(key) {
		data, err := a.cache.Get(key)
		if err == nil {
			var part []measurement.Measurement
			if err := json.Unmarshal(data, &part); err == nil {
				return part, nil
			}
		}
		// Unreadable cache entries fall through to a fresh fetch.
		log.Printf("Discarding unreadable series cache entry %s", key)
	}

	pairFilter := f.WithPair(platform, parameter)
	location := granularity.Location(r, granularity.Mean)

	ids, err := a.store.ListIDs(ctx, location, pairFilter)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s at %s: %w", platform, parameter, r, err)
	}

	part := make([]measurement.Measurement, 0, len(ids))
	for _, id := range ids {
		m, err := a.store.GetByID(ctx, location, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("record %s listed but missing at %s: %w", id, r, store.ErrConsistency)
			}
			return nil, fmt.Errorf("fetch %s at %s: %w", id, r, err)
		}
		if a.rejected(m) {
			continue
		}
		part = append(part, m)
	}

	sortByTime(part)

	if a.cache != nil && len(part) > 0 {
		data, err := json.Marshal(part)
		if err == nil {
			if err := a.cache.Put(key, data); err != nil {
				log.Printf("Failed to cache series %s: %v", key, err)
			}
		}
	}
	return part, nil
}

// rejected applies the outlier predicate set.
func (a *Assembler) rejected(m measurement.Measurement) bool {
	for _, rule := range a.outliers {
		if rule.appliesTo(m.PlatformCode, m.Parameter) && rule.Reject(m.Value) {
			return true
		}
	}
	return false
}

// Key builds the deterministic cache key for one pair's series. Every
// filter parameter participates, so differing filters never collide.
func Key(platform, parameter string, r granularity.Rule, f measurement.Filter) string {
	var b strings.Builder
	b.WriteString("df-")
	b.WriteString(platform)
	b.WriteByte('_')
	b.WriteString(parameter)
	b.WriteByte('_')
	b.WriteString(string(r))
	b.WriteString("_dmin")
	b.WriteString(floatParam(f.DepthMin))
	b.WriteString("_dmax")
	b.WriteString(floatParam(f.DepthMax))
	b.WriteString("_tmin")
	b.WriteString(TimeParam(f.TimeMin))
	b.WriteString("_tmax")
	b.WriteString(TimeParam(f.TimeMax))
	b.WriteString("_qc")
	b.WriteString(intParam(f.QC))
	b.WriteString(".json")
	return b.String()
}

// TimeParam renders a timestamp for use inside cache keys, with colons
// normalized to dashes. The zero time renders as "none".
func TimeParam(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return strings.ReplaceAll(t.UTC().Format("2006-01-02T15:04:05"), ":", "-")
}

func floatParam(v *float64) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func intParam(v *int) string {
	if v == nil {
		return "none"
	}
	return strconv.Itoa(*v)
}

func dedupe(ms []measurement.Measurement) []measurement.Measurement {
	if len(ms) < 2 {
		return ms
	}
	seen := make(map[string]struct{}, len(ms))
	out := ms[:0]
	for _, m := range ms {
		id := m.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, m)
	}
	return out
}

func sortByTime(ms []measurement.Measurement) {
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].Time.Before(ms[j].Time)
	})
}
