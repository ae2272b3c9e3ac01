package data

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/oceanobs/seaportal/pkg/measurement"
)

// querySpec is the parsed form of the shared data query parameters.
type querySpec struct {
	Platforms []string
	Params    []string
	Filter    measurement.Filter
}

// parseQuery reads the shared query parameters: platform_code and
// parameter are comma-separated lists, depth/time bounds and qc are
// optional.
func parseQuery(r *http.Request) (querySpec, error) {
	q := r.URL.Query()

	spec := querySpec{
		Platforms: splitList(q.Get("platform_code")),
		Params:    splitList(q.Get("parameter")),
	}
	if len(spec.Platforms) == 0 {
		return spec, fmt.Errorf("platform_code is required")
	}
	if len(spec.Params) == 0 {
		return spec, fmt.Errorf("parameter is required")
	}

	if v := q.Get("depth_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid depth_min %q", v)
		}
		spec.Filter.DepthMin = &f
	}
	if v := q.Get("depth_max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return spec, fmt.Errorf("invalid depth_max %q", v)
		}
		spec.Filter.DepthMax = &f
	}
	if v := q.Get("time_min"); v != "" {
		t, err := measurement.ParseTime(v)
		if err != nil {
			return spec, fmt.Errorf("invalid time_min %q", v)
		}
		spec.Filter.TimeMin = t
	}
	if v := q.Get("time_max"); v != "" {
		t, err := measurement.ParseTime(v)
		if err != nil {
			return spec, fmt.Errorf("invalid time_max %q", v)
		}
		spec.Filter.TimeMax = t
	}
	if v := q.Get("qc"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return spec, fmt.Errorf("invalid qc %q", v)
		}
		spec.Filter.QC = &n
	}
	return spec, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
