package figure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oceanobs/seaportal/pkg/availability"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
	"github.com/oceanobs/seaportal/pkg/store"
)

// MetadataSource supplies the station facts figures need beyond the raw
// measurements.
type MetadataSource interface {
	PlatformPositions(ctx context.Context) ([]Marker, error)
	PlatformParameters(ctx context.Context, platform string) ([]string, error)
	PlatformsWithParameter(ctx context.Context, parameter string) ([]string, error)
}

// Service composes the selector, assembler and metadata into page models.
type Service struct {
	selector  *rule.Selector
	assembler *series.Assembler
	store     store.Store
	metadata  MetadataSource
}

// NewService wires a figure service.
func NewService(sel *rule.Selector, asm *series.Assembler, st store.Store, meta MetadataSource) *Service {
	return &Service{selector: sel, assembler: asm, store: st, metadata: meta}
}

// BuildPage produces the page model for a request. rule.ErrNoData means
// there is nothing to plot; the builder turns that into the placeholder.
func (s *Service) BuildPage(ctx context.Context, req Request) (Page, error) {
	switch req.Kind {
	case Line, Area, Scatter:
		return s.timeSeriesPage(ctx, req)
	case PiePlatform:
		return s.piePage(ctx, req, true)
	case PieParameter:
		return s.piePage(ctx, req, false)
	case Map:
		return s.mapPage(ctx, req)
	case AvailPlatform:
		return s.platformAvailabilityPage(ctx, req)
	case AvailParameter:
		return s.parameterAvailabilityPage(ctx, req)
	default:
		return Page{}, fmt.Errorf("unknown figure kind %q", req.Kind)
	}
}

func (s *Service) timeSeriesPage(ctx context.Context, req Request) (Page, error) {
	r, err := s.selector.Select(ctx, req.Platforms, req.Params, req.Filter)
	if err != nil {
		return Page{}, err
	}
	ms, err := s.assembler.Assemble(ctx, req.Platforms, req.Params, r, req.Filter)
	if err != nil {
		return Page{}, err
	}
	if len(ms) == 0 {
		return Page{}, rule.ErrNoData
	}

	pairs, byPair := series.SplitByPair(ms)
	page := Page{
		Title:    strings.Join(req.Params, ", ") + " at " + strings.Join(req.Platforms, ", "),
		Kind:     req.Kind,
		Rule:     string(r),
		Template: req.Template,
	}
	for _, p := range pairs {
		trace := Trace{Name: p.Label()}
		for _, m := range byPair[p] {
			trace.X = append(trace.X, stamp(m.Time))
			trace.Y = append(trace.Y, m.Value)
		}
		page.Traces = append(page.Traces, trace)
	}
	return page, nil
}

// piePage charts how the records split across platforms or parameters,
// counted on the monthly aggregates.
func (s *Service) piePage(ctx context.Context, req Request, byPlatform bool) (Page, error) {
	location := granularity.Location(granularity.M, granularity.Mean)
	page := Page{Kind: req.Kind, Template: req.Template}

	labels := req.Platforms
	if !byPlatform {
		labels = req.Params
	}
	total := 0
	for _, label := range labels {
		f := req.Filter
		if byPlatform {
			f.PlatformCodes = []string{label}
			f.Parameters = req.Params
		} else {
			f.PlatformCodes = req.Platforms
			f.Parameters = []string{label}
		}
		count, err := s.store.Count(ctx, location, f)
		if err != nil {
			return Page{}, fmt.Errorf("count for %s: %w", label, err)
		}
		if count == 0 {
			continue
		}
		total += count
		page.Slices = append(page.Slices, Slice{Label: label, Value: count})
	}
	if total == 0 {
		return Page{}, rule.ErrNoData
	}
	if byPlatform {
		page.Title = "Records per platform"
	} else {
		page.Title = "Records per parameter"
	}
	return page, nil
}

func (s *Service) mapPage(ctx context.Context, req Request) (Page, error) {
	markers, err := s.metadata.PlatformPositions(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("platform positions: %w", err)
	}
	if len(markers) == 0 {
		return Page{}, rule.ErrNoData
	}
	return Page{Title: "Observatory map", Kind: Map, Template: req.Template, Markers: markers}, nil
}

// platformAvailabilityPage charts, for one platform, when each of its
// parameters has data. Parameters without any data contribute no bars.
func (s *Service) platformAvailabilityPage(ctx context.Context, req Request) (Page, error) {
	if len(req.Platforms) != 1 {
		return Page{}, fmt.Errorf("platform availability needs exactly one platform, got %d", len(req.Platforms))
	}
	platform := req.Platforms[0]

	params := req.Params
	if len(params) == 0 {
		var err error
		params, err = s.metadata.PlatformParameters(ctx, platform)
		if err != nil {
			return Page{}, fmt.Errorf("parameters of %s: %w", platform, err)
		}
	}

	page := Page{Title: "Data availability at " + platform, Kind: AvailPlatform, Template: req.Template}
	for _, param := range params {
		spans, err := s.coverage(ctx, platform, param, req.Filter)
		if err != nil {
			return Page{}, err
		}
		for _, sp := range spans {
			sp.Label = param
			page.Spans = append(page.Spans, sp)
		}
	}
	if len(page.Spans) == 0 {
		return Page{}, rule.ErrNoData
	}
	return page, nil
}

// parameterAvailabilityPage charts, for one parameter, which platforms
// observed it and when.
func (s *Service) parameterAvailabilityPage(ctx context.Context, req Request) (Page, error) {
	if len(req.Params) != 1 {
		return Page{}, fmt.Errorf("parameter availability needs exactly one parameter, got %d", len(req.Params))
	}
	param := req.Params[0]

	platforms := req.Platforms
	if len(platforms) == 0 {
		var err error
		platforms, err = s.metadata.PlatformsWithParameter(ctx, param)
		if err != nil {
			return Page{}, fmt.Errorf("platforms observing %s: %w", param, err)
		}
	}

	page := Page{Title: param + " availability", Kind: AvailParameter, Template: req.Template}
	for _, platform := range platforms {
		spans, err := s.coverage(ctx, platform, param, req.Filter)
		if err != nil {
			return Page{}, err
		}
		for _, sp := range spans {
			sp.Label = platform
			page.Spans = append(page.Spans, sp)
		}
	}
	if len(page.Spans) == 0 {
		return Page{}, rule.ErrNoData
	}
	return page, nil
}

// coverage computes the availability bars for one pair at its own best
// resolution. A pair without data simply has no bars.
func (s *Service) coverage(ctx context.Context, platform, param string, f measurement.Filter) ([]Span, error) {
	r, err := s.selector.Select(ctx, []string{platform}, []string{param}, f)
	if err != nil {
		if errors.Is(err, rule.ErrNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("coverage of %s/%s: %w", platform, param, err)
	}
	ms, err := s.assembler.Assemble(ctx, []string{platform}, []string{param}, r, f)
	if err != nil {
		return nil, fmt.Errorf("coverage of %s/%s: %w", platform, param, err)
	}
	intervals := availability.Extract(series.Resample(ms, r))
	spans := make([]Span, 0, len(intervals))
	for _, iv := range intervals {
		spans = append(spans, Span{Start: stamp(iv.Start), End: stamp(iv.End)})
	}
	return spans, nil
}
