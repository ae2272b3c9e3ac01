package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
	"github.com/oceanobs/seaportal/pkg/store/memory"
)

func newExporter(t *testing.T) (*Exporter, *memory.Store) {
	t.Helper()
	s := memory.New()
	return NewExporter(rule.NewSelector(s, 1000), series.NewAssembler(s, nil)), s
}

func seed(t *testing.T, s *memory.Store, at time.Time, value float64) {
	t.Helper()
	m := measurement.Measurement{
		PlatformCode: "OBSEA",
		Parameter:    "TEMP",
		Time:         at,
		Depth:        20,
		Value:        value,
		Lat:          41.18,
		Lon:          1.75,
		QC:           1,
	}
	loc := granularity.Location(granularity.H, granularity.Mean)
	require.NoError(t, s.Put(context.Background(), loc, m.ID(), m))
}

func TestExportCSV(t *testing.T) {
	e, s := newExporter(t)
	base := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	seed(t, s, base, 14.5)
	seed(t, s, base.Add(time.Hour), 15.5)

	var buf bytes.Buffer
	result, err := e.ExportCSV(context.Background(), &buf, Options{
		Platforms: []string{"OBSEA"},
		Params:    []string{"TEMP"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, "csv", result.Format)
	assert.Equal(t, string(granularity.H), result.Rule)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"platform_code", "parameter", "time", "depth", "value", "lat", "lon", "qc"}, rows[0])
	assert.Equal(t, "OBSEA", rows[1][0])
	assert.Equal(t, "2021-03-01 12:00:00", rows[1][2])
	assert.Equal(t, "14.5", rows[1][4])
}

func TestExportJSON(t *testing.T) {
	e, s := newExporter(t)
	seed(t, s, time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC), 14.5)

	var buf bytes.Buffer
	result, err := e.ExportJSON(context.Background(), &buf, Options{
		Platforms: []string{"OBSEA"},
		Params:    []string{"TEMP"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Records)

	var payload struct {
		Metadata struct {
			Rule    string `json:"rule"`
			Records int    `json:"records"`
		} `json:"metadata"`
		Measurements []measurement.Measurement `json:"measurements"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, 1, payload.Metadata.Records)
	require.Len(t, payload.Measurements, 1)
	assert.Equal(t, 14.5, payload.Measurements[0].Value)
}

func TestExportNoData(t *testing.T) {
	e, _ := newExporter(t)
	var buf bytes.Buffer
	_, err := e.ExportCSV(context.Background(), &buf, Options{
		Platforms: []string{"GHOST"},
		Params:    []string{"TEMP"},
	})
	assert.True(t, errors.Is(err, rule.ErrNoData))
	assert.Zero(t, buf.Len(), "no partial output on failure")
}
