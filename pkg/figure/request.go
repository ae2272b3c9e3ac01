// Package figure builds the portal's chart artifacts: time-series plots,
// distribution pies, coverage Gantts and the station map. Finished charts
// are self-contained HTML pages cached on disk under deterministic keys;
// clients poll the key until the artifact lands.
package figure

import (
	"strconv"
	"strings"

	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/series"
)

// Kind enumerates the chart types the portal renders.
type Kind string

const (
	Line           Kind = "line"
	Area           Kind = "area"
	Scatter        Kind = "scatter"
	PiePlatform    Kind = "pie-platform"
	PieParameter   Kind = "pie-parameter"
	Map            Kind = "map"
	AvailPlatform  Kind = "avail-platform"
	AvailParameter Kind = "avail-parameter"
)

// Request identifies one figure. Two requests with equal fields always
// resolve to the same cache key, and any field difference changes it.
type Request struct {
	Kind      Kind
	Platforms []string
	Params    []string
	Filter    measurement.Filter
	Template  string
}

// Key derives the deterministic cache key for the request. Timestamps
// inside the key are colon-free so the key doubles as a filename.
func (r Request) Key() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	b.WriteByte('-')
	b.WriteString(strings.Join(r.Platforms, ","))
	b.WriteByte('-')
	b.WriteString(strings.Join(r.Params, ","))
	b.WriteString("-dmin")
	b.WriteString(floatParam(r.Filter.DepthMin))
	b.WriteString("-dmax")
	b.WriteString(floatParam(r.Filter.DepthMax))
	b.WriteString("-tmin")
	b.WriteString(series.TimeParam(r.Filter.TimeMin))
	b.WriteString("-tmax")
	b.WriteString(series.TimeParam(r.Filter.TimeMax))
	b.WriteString("-qc")
	b.WriteString(intParam(r.Filter.QC))
	if r.Template != "" {
		b.WriteByte('-')
		b.WriteString(r.Template)
	}
	b.WriteString(".html")
	return b.String()
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
