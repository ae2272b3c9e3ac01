package figure

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
	"github.com/oceanobs/seaportal/pkg/store/memory"
)

type stubMetadata struct {
	positions []Marker
	params    map[string][]string
	platforms map[string][]string
}

func (s stubMetadata) PlatformPositions(context.Context) ([]Marker, error) {
	return s.positions, nil
}

func (s stubMetadata) PlatformParameters(_ context.Context, platform string) ([]string, error) {
	return s.params[platform], nil
}

func (s stubMetadata) PlatformsWithParameter(_ context.Context, parameter string) ([]string, error) {
	return s.platforms[parameter], nil
}

func seedAt(t *testing.T, s *memory.Store, r granularity.Rule, platform, param string, times []time.Time, value float64) {
	t.Helper()
	loc := granularity.Location(r, granularity.Mean)
	for _, at := range times {
		m := measurement.Measurement{
			PlatformCode: platform,
			Parameter:    param,
			Time:         at,
			Depth:        10,
			Value:        value,
			QC:           1,
		}
		require.NoError(t, s.Put(context.Background(), loc, m.ID(), m))
	}
}

func newService(s *memory.Store, meta MetadataSource) *Service {
	sel := rule.NewSelector(s, 1000)
	asm := series.NewAssembler(s, nil)
	return NewService(sel, asm, s, meta)
}

func TestRequestKeyDeterministicAndFieldSensitive(t *testing.T) {
	tmin := time.Date(2021, 1, 1, 12, 30, 0, 0, time.UTC)
	req := Request{
		Kind:      Line,
		Platforms: []string{"OBSEA", "BUOY1"},
		Params:    []string{"TEMP"},
		Filter:    measurement.Filter{TimeMin: tmin},
		Template:  "dark",
	}

	key := req.Key()
	assert.Equal(t, key, req.Key())
	assert.True(t, strings.HasPrefix(key, "line-"))
	assert.True(t, strings.HasSuffix(key, ".html"))
	assert.NotContains(t, key, ":")

	qc := 1
	withQC := req
	withQC.Filter.QC = &qc
	assert.NotEqual(t, key, withQC.Key())

	scatter := req
	scatter.Kind = Scatter
	assert.NotEqual(t, key, scatter.Key())
}

func TestLinePageOneTracePerPair(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedAt(t, s, granularity.H, "A", "TEMP", []time.Time{base, base.Add(time.Hour)}, 15)
	seedAt(t, s, granularity.H, "B", "TEMP", []time.Time{base}, 16)

	svc := newService(s, stubMetadata{})
	page, err := svc.BuildPage(context.Background(), Request{
		Kind:      Line,
		Platforms: []string{"A", "B"},
		Params:    []string{"TEMP"},
	})
	require.NoError(t, err)
	require.Len(t, page.Traces, 2)
	assert.Equal(t, "A TEMP", page.Traces[0].Name)
	assert.Len(t, page.Traces[0].X, 2)
	assert.Equal(t, "B TEMP", page.Traces[1].Name)
	assert.NotEmpty(t, page.Rule)
}

func TestPiePlatformPageSkipsEmptyPlatforms(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedAt(t, s, granularity.M, "A", "TEMP", []time.Time{base, base.AddDate(0, 1, 0)}, 15)

	svc := newService(s, stubMetadata{})
	page, err := svc.BuildPage(context.Background(), Request{
		Kind:      PiePlatform,
		Platforms: []string{"A", "GHOST"},
		Params:    []string{"TEMP"},
	})
	require.NoError(t, err)
	require.Len(t, page.Slices, 1)
	assert.Equal(t, "A", page.Slices[0].Label)
	assert.Equal(t, 2, page.Slices[0].Value)
}

func TestPlatformAvailabilityPage(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	// TEMP has a gap at hour 2, PSAL is continuous.
	seedAt(t, s, granularity.H, "A", "TEMP", []time.Time{base, base.Add(time.Hour), base.Add(3 * time.Hour)}, 15)
	seedAt(t, s, granularity.H, "A", "PSAL", []time.Time{base, base.Add(time.Hour)}, 35)

	meta := stubMetadata{params: map[string][]string{"A": {"TEMP", "PSAL"}}}
	svc := newService(s, meta)
	page, err := svc.BuildPage(context.Background(), Request{
		Kind:      AvailPlatform,
		Platforms: []string{"A"},
	})
	require.NoError(t, err)

	var temp, psal []Span
	for _, sp := range page.Spans {
		switch sp.Label {
		case "TEMP":
			temp = append(temp, sp)
		case "PSAL":
			psal = append(psal, sp)
		}
	}
	assert.Len(t, temp, 2, "gap must split the TEMP coverage")
	require.Len(t, psal, 1)
	assert.Equal(t, "2021-03-01 00:00:00", psal[0].Start)
	assert.Equal(t, "2021-03-01 01:00:00", psal[0].End)
}

func TestMapPageUsesMetadataPositions(t *testing.T) {
	meta := stubMetadata{positions: []Marker{{Code: "OBSEA", Lat: 41.18, Lon: 1.75}}}
	svc := newService(memory.New(), meta)
	page, err := svc.BuildPage(context.Background(), Request{Kind: Map})
	require.NoError(t, err)
	require.Len(t, page.Markers, 1)
	assert.Equal(t, "OBSEA", page.Markers[0].Code)
}

func TestBuilderLandsArtifactAndSharesBuilds(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedAt(t, s, granularity.H, "A", "TEMP", []time.Time{base}, 15)

	c, err := cache.NewDisk(t.TempDir())
	require.NoError(t, err)
	b := NewBuilder(newService(s, stubMetadata{}), c, HTMLRenderer{}, 10*time.Second)

	req := Request{Kind: Line, Platforms: []string{"A"}, Params: []string{"TEMP"}}
	key, ready := b.Get(req)
	assert.False(t, ready, "first request must start a background build")

	require.Eventually(t, func() bool {
		_, ready := b.Get(req)
		return ready
	}, 5*time.Second, 10*time.Millisecond)

	data, err := b.Fetch(key)
	require.NoError(t, err)
	assert.Contains(t, string(data), "figure-data")
}

func TestBuilderWritesPlaceholderWhenNothingToPlot(t *testing.T) {
	c, err := cache.NewDisk(t.TempDir())
	require.NoError(t, err)
	b := NewBuilder(newService(memory.New(), stubMetadata{}), c, HTMLRenderer{}, 10*time.Second)

	req := Request{Kind: Line, Platforms: []string{"A"}, Params: []string{"TEMP"}}
	key, _ := b.Get(req)

	require.Eventually(t, func() bool {
		return c.Exists(key)
	}, 5*time.Second, 10*time.Millisecond)

	data, err := b.Fetch(key)
	require.NoError(t, err)
	assert.Contains(t, string(data), NoDataMessage)
}
