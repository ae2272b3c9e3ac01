// Package granularity defines the fixed catalog of time-aggregation rules.
//
// Measurements are pre-aggregated at ingestion time into sixteen resolutions,
// from raw (R) up to monthly (M). Each rule maps to a distinct storage
// location per aggregation method (mean, min, max). The catalog is static:
// this package only describes the levels, it never computes aggregates.
package granularity

import (
	"fmt"
	"time"
)

// Rule is one of the sixteen aggregation resolutions.
type Rule string

// The sixteen rules, finest to coarsest.
const (
	R   Rule = "R"
	H   Rule = "H"
	H2  Rule = "2H"
	H3  Rule = "3H"
	H6  Rule = "6H"
	H8  Rule = "8H"
	H12 Rule = "12H"
	D   Rule = "D"
	D2  Rule = "2D"
	D3  Rule = "3D"
	D4  Rule = "4D"
	D5  Rule = "5D"
	D6  Rule = "6D"
	D10 Rule = "10D"
	D15 Rule = "15D"
	M   Rule = "M"
)

// Rules lists every rule in fixed finest-to-coarsest order. The rule
// selector scans this slice; the order is part of the selection contract.
var Rules = []Rule{R, H, H2, H3, H6, H8, H12, D, D2, D3, D4, D5, D6, D10, D15, M}

// ranks is the explicit total order used when combining per-pair selections.
// Zero is reserved for "no rule" so that any real rule outranks it.
var ranks = map[Rule]int{
	R: 1, H: 2, H2: 3, H3: 4, H6: 5, H8: 6, H12: 7, D: 8,
	D2: 9, D3: 10, D4: 11, D5: 12, D6: 13, D10: 14, D15: 15, M: 16,
}

// Rank returns the position of r in the total order (R=1 .. M=16).
// An empty or unknown rule ranks 0, below every real rule.
func Rank(r Rule) int {
	return ranks[r]
}

// Valid reports whether r is one of the sixteen catalog rules.
func Valid(r Rule) bool {
	_, ok := ranks[r]
	return ok
}

// Parse converts a label such as "2H" or "15D" into a Rule.
func Parse(s string) (Rule, error) {
	r := Rule(s)
	if !Valid(r) {
		return "", fmt.Errorf("unknown granularity rule %q", s)
	}
	return r, nil
}

// Method selects which pre-computed aggregate a location holds.
type Method string

const (
	Mean Method = "mean"
	Min  Method = "min"
	Max  Method = "max"
)

// Location returns the storage location holding aggregates of r computed
// with the given method. Raw data has a single location regardless of
// method. Calling Location with a rule outside the catalog is a programming
// error and panics.
func Location(r Rule, method Method) string {
	if !Valid(r) {
		panic(fmt.Sprintf("granularity: no location for rule %q", r))
	}
	if r == R {
		return "data-r"
	}
	suffix := ""
	switch method {
	case Min:
		suffix = "-min"
	case Max:
		suffix = "-max"
	}
	return "data-" + lower(string(r)) + suffix
}

// durations gives the resampling bucket width for each duration-based rule.
// M is calendar-based and handled separately (see Buckets in pkg/series).
var durations = map[Rule]time.Duration{
	H:   time.Hour,
	H2:  2 * time.Hour,
	H3:  3 * time.Hour,
	H6:  6 * time.Hour,
	H8:  8 * time.Hour,
	H12: 12 * time.Hour,
	D:   24 * time.Hour,
	D2:  2 * 24 * time.Hour,
	D3:  3 * 24 * time.Hour,
	D4:  4 * 24 * time.Hour,
	D5:  5 * 24 * time.Hour,
	D6:  6 * 24 * time.Hour,
	D10: 10 * 24 * time.Hour,
	D15: 15 * 24 * time.Hour,
}

// BucketDuration returns the resampling grid step for r. Raw series are
// resampled hourly, matching the portal's original behavior. Monthly
// buckets are calendar months and report ok=false here.
func BucketDuration(r Rule) (time.Duration, bool) {
	if r == R {
		return time.Hour, true
	}
	d, ok := durations[r]
	return d, ok
}

// lower avoids importing strings for two characters.
func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
