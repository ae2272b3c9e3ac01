package figure

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/oceanobs/seaportal/pkg/config"
	"github.com/oceanobs/seaportal/pkg/httpx"
	"github.com/oceanobs/seaportal/pkg/measurement"
)

// Handler serves figures. A request for a figure not yet built answers
// 202 with the key to poll; once the artifact lands the same request
// serves the HTML.
type Handler struct {
	builder *Builder
}

// NewHandler wires the figure handler.
func NewHandler(b *Builder) *Handler {
	return &Handler{builder: b}
}

var kinds = map[string]Kind{
	string(Line):           Line,
	string(Area):           Area,
	string(Scatter):        Scatter,
	string(PiePlatform):    PiePlatform,
	string(PieParameter):   PieParameter,
	string(Map):            Map,
	string(AvailPlatform):  AvailPlatform,
	string(AvailParameter): AvailParameter,
}

// HandleFigure resolves or starts the figure build for the requested
// kind.
func (h *Handler) HandleFigure(w http.ResponseWriter, r *http.Request) {
	kind, ok := kinds[mux.Vars(r)["kind"]]
	if !ok {
		httpx.RespondBadRequest(w, fmt.Sprintf("unknown figure kind %q", mux.Vars(r)["kind"]))
		return
	}

	req, err := parseRequest(r, kind)
	if err != nil {
		httpx.RespondBadRequest(w, err.Error())
		return
	}

	key, ready := h.builder.Get(req)
	if !ready {
		httpx.Respond(w, http.StatusAccepted, "figure build in progress", map[string]interface{}{
			"key":              key,
			"poll_interval_ms": config.FigurePollInterval.Milliseconds(),
		})
		return
	}

	data, err := h.builder.Fetch(key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func parseRequest(r *http.Request, kind Kind) (Request, error) {
	q := r.URL.Query()
	req := Request{
		Kind:      kind,
		Platforms: splitList(q.Get("platform_code")),
		Params:    splitList(q.Get("parameter")),
		Template:  q.Get("template"),
	}

	switch kind {
	case Map:
		// The map draws every station; no lists required.
	case AvailPlatform:
		if len(req.Platforms) != 1 {
			return req, fmt.Errorf("platform availability needs exactly one platform_code")
		}
	case AvailParameter:
		if len(req.Params) != 1 {
			return req, fmt.Errorf("parameter availability needs exactly one parameter")
		}
	default:
		if len(req.Platforms) == 0 {
			return req, fmt.Errorf("platform_code is required")
		}
		if len(req.Params) == 0 {
			return req, fmt.Errorf("parameter is required")
		}
	}

	if v := q.Get("depth_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("invalid depth_min %q", v)
		}
		req.Filter.DepthMin = &f
	}
	if v := q.Get("depth_max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("invalid depth_max %q", v)
		}
		req.Filter.DepthMax = &f
	}
	if v := q.Get("time_min"); v != "" {
		t, err := measurement.ParseTime(v)
		if err != nil {
			return req, fmt.Errorf("invalid time_min %q", v)
		}
		req.Filter.TimeMin = t
	}
	if v := q.Get("time_max"); v != "" {
		t, err := measurement.ParseTime(v)
		if err != nil {
			return req, fmt.Errorf("invalid time_max %q", v)
		}
		req.Filter.TimeMax = t
	}
	if v := q.Get("qc"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("invalid qc %q", v)
		}
		req.Filter.QC = &n
	}
	return req, nil
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
