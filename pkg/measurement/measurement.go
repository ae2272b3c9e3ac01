// Package measurement defines the observation model shared by every layer:
// the Measurement record, its deterministic identity key, and the typed
// Filter that replaces the portal's old string-built search queries.
package measurement

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the second-precision wire format for measurement timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Measurement is a single observation from a platform's sensor.
type Measurement struct {
	PlatformCode string    `json:"platform_code"`
	Parameter    string    `json:"parameter"`
	Time         time.Time `json:"time"`
	Depth        float64   `json:"depth"`
	Value        float64   `json:"value"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	QC           int       `json:"qc"`
	TimeQC       int       `json:"time_qc"`
	LatQC        int       `json:"lat_qc"`
	LonQC        int       `json:"lon_qc"`
	DepthQC      int       `json:"depth_qc"`
}

// ID returns the deterministic identity key:
// platform_parameter_depth_time, with spaces in the timestamp replaced by
// underscores. Two measurements with the same key are the same observation.
func (m Measurement) ID() string {
	ts := strings.ReplaceAll(m.Time.UTC().Format(TimeLayout), " ", "_")
	depth := strconv.FormatFloat(m.Depth, 'g', -1, 64)
	return fmt.Sprintf("%s_%s_%s_%s", m.PlatformCode, m.Parameter, depth, ts)
}

// Filter selects measurements. Fields compose with logical AND; the
// multi-valued platform and parameter lists compose with OR within the
// field. Nil pointer fields and zero times mean "no constraint".
type Filter struct {
	PlatformCodes []string
	Parameters    []string
	DepthMin      *float64
	DepthMax      *float64
	TimeMin       time.Time
	TimeMax       time.Time

	// QC filters by quality-control flag. A value of 0 is treated as if
	// the filter were absent. Inherited from the original portal, where a
	// zero flag was indistinguishable from "no filter requested"; pinned
	// by tests until product decides otherwise.
	QC *int
}

// Matches reports whether m satisfies every constraint of f.
func (f Filter) Matches(m Measurement) bool {
	if len(f.PlatformCodes) > 0 && !contains(f.PlatformCodes, m.PlatformCode) {
		return false
	}
	if len(f.Parameters) > 0 && !contains(f.Parameters, m.Parameter) {
		return false
	}
	if f.DepthMin != nil && m.Depth < *f.DepthMin {
		return false
	}
	if f.DepthMax != nil && m.Depth > *f.DepthMax {
		return false
	}
	if !f.TimeMin.IsZero() && m.Time.Before(f.TimeMin) {
		return false
	}
	if !f.TimeMax.IsZero() && m.Time.After(f.TimeMax) {
		return false
	}
	if f.QC != nil && *f.QC != 0 && m.QC != *f.QC {
		return false
	}
	return true
}

// WithPair returns a copy of f narrowed to a single platform/parameter
// pair. The assembler and rule selector iterate the cartesian product of
// the requested lists one pair at a time.
func (f Filter) WithPair(platform, parameter string) Filter {
	nf := f
	nf.PlatformCodes = []string{platform}
	nf.Parameters = []string{parameter}
	return nf
}

// timeLayouts accepted by ParseTime, from year precision down to full
// RFC 3339 timestamps.
var timeLayouts = []string{
	"2006",
	"2006-01",
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	TimeLayout,
}

// ParseTime parses an ISO-8601 timestamp with at least year precision.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q (ISO-8601, year precision minimum)", s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
