// Package export serializes assembled measurement series for download.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
)

// Exporter writes measurement series as CSV or JSON.
type Exporter struct {
	selector  *rule.Selector
	assembler *series.Assembler
}

// NewExporter creates an exporter over the selector and assembler.
func NewExporter(sel *rule.Selector, asm *series.Assembler) *Exporter {
	return &Exporter{selector: sel, assembler: asm}
}

// Options configures one export.
type Options struct {
	Platforms []string
	Params    []string
	Filter    measurement.Filter
}

// Result reports what an export produced.
type Result struct {
	Records    int       `json:"records"`
	Rule       string    `json:"rule"`
	Format     string    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportCSV resolves the best rule for the request, assembles the series
// and streams it as CSV.
func (e *Exporter) ExportCSV(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	r, ms, err := e.assemble(ctx, opts)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"platform_code", "parameter", "time", "depth", "value", "lat", "lon", "qc"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, m := range ms {
		row := []string{
			m.PlatformCode,
			m.Parameter,
			m.Time.UTC().Format(measurement.TimeLayout),
			strconv.FormatFloat(m.Depth, 'f', -1, 64),
			strconv.FormatFloat(m.Value, 'f', -1, 64),
			strconv.FormatFloat(m.Lat, 'f', -1, 64),
			strconv.FormatFloat(m.Lon, 'f', -1, 64),
			strconv.Itoa(m.QC),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return &Result{Records: len(ms), Rule: string(r), Format: "csv", ExportedAt: time.Now()}, nil
}

// ExportJSON streams the series as JSON with an export header.
func (e *Exporter) ExportJSON(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	r, ms, err := e.assemble(ctx, opts)
	if err != nil {
		return nil, err
	}

	payload := struct {
		Metadata struct {
			ExportedAt time.Time `json:"exported_at"`
			Rule       string    `json:"rule"`
			Records    int       `json:"records"`
		} `json:"metadata"`
		Measurements []measurement.Measurement `json:"measurements"`
	}{Measurements: ms}
	payload.Metadata.ExportedAt = time.Now()
	payload.Metadata.Rule = string(r)
	payload.Metadata.Records = len(ms)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}

	return &Result{Records: len(ms), Rule: string(r), Format: "json", ExportedAt: payload.Metadata.ExportedAt}, nil
}

func (e *Exporter) assemble(ctx context.Context, opts Options) (granularity.Rule, []measurement.Measurement, error) {
	r, err := e.selector.Select(ctx, opts.Platforms, opts.Params, opts.Filter)
	if err != nil {
		return "", nil, err
	}
	ms, err := e.assembler.Assemble(ctx, opts.Platforms, opts.Params, r, opts.Filter)
	if err != nil {
		return "", nil, err
	}
	return r, ms, nil
}
