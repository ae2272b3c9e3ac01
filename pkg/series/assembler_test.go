package series

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/store"
	"github.com/oceanobs/seaportal/pkg/store/memory"
)

func seed(t *testing.T, s *memory.Store, r granularity.Rule, platform, param string, at time.Time, value float64) measurement.Measurement {
	t.Helper()
	m := measurement.Measurement{
		PlatformCode: platform,
		Parameter:    param,
		Time:         at,
		Depth:        20,
		Value:        value,
		QC:           1,
	}
	loc := granularity.Location(r, granularity.Mean)
	if err := s.Put(context.Background(), loc, m.ID(), m); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return m
}

func TestAssembleRejectsOutliers(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, granularity.H, "A", "TEMP", base, 5)
	seed(t, s, granularity.H, "A", "TEMP", base.Add(time.Hour), 41) // sensor in air
	seed(t, s, granularity.H, "A", "TEMP", base.Add(2*time.Hour), 20)

	a := NewAssembler(s, nil)
	got, err := a.Assemble(context.Background(), []string{"A"}, []string{"TEMP"}, granularity.H, measurement.Filter{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 after outlier rejection", len(got))
	}
	for _, m := range got {
		if m.Value > 40 {
			t.Errorf("outlier %v survived", m.Value)
		}
	}
}

func TestAssembleObseaBandRule(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, granularity.H, "OBSEA", "TEMP", base, 8)  // below coastal band
	seed(t, s, granularity.H, "OBSEA", "TEMP", base.Add(time.Hour), 18)
	seed(t, s, granularity.H, "OTHER", "TEMP", base, 8) // fine elsewhere

	a := NewAssembler(s, nil)
	got, err := a.Assemble(context.Background(), []string{"OBSEA", "OTHER"}, []string{"TEMP"}, granularity.H, measurement.Filter{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for _, m := range got {
		if m.PlatformCode == "OBSEA" && m.Value == 8 {
			t.Error("OBSEA band rule did not fire")
		}
	}
}

func TestAssembleSortedAndDeduped(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, granularity.D, "B", "PSAL", base.AddDate(0, 0, 2), 35)
	seed(t, s, granularity.D, "B", "PSAL", base, 36)
	seed(t, s, granularity.D, "A", "PSAL", base.AddDate(0, 0, 1), 37)

	a := NewAssembler(s, nil)
	got, err := a.Assemble(context.Background(), []string{"A", "B"}, []string{"PSAL"}, granularity.D, measurement.Filter{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Time.Before(got[j].Time) }) {
		t.Error("result not sorted by time")
	}
	seen := map[string]bool{}
	for _, m := range got {
		if seen[m.ID()] {
			t.Errorf("duplicate id %s", m.ID())
		}
		seen[m.ID()] = true
	}
}

func TestAssembleEmptyIsValid(t *testing.T) {
	a := NewAssembler(memory.New(), nil)
	got, err := a.Assemble(context.Background(), []string{"A"}, []string{"TEMP"}, granularity.H, measurement.Filter{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want none", len(got))
	}
}

func TestAssembleUsesCacheOnSecondCall(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	m := seed(t, s, granularity.H, "A", "TEMP", base, 12)

	c, err := cache.NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	a := NewAssembler(s, c)

	first, err := a.Assemble(context.Background(), []string{"A"}, []string{"TEMP"}, granularity.H, measurement.Filter{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d records, want 1", len(first))
	}

	// The record is gone from the store, but the cached partial answers.
	loc := granularity.Location(granularity.H, granularity.Mean)
	if err := s.Delete(context.Background(), loc, m.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second, err := a.Assemble(context.Background(), []string{"A"}, []string{"TEMP"}, granularity.H, measurement.Filter{})
	if err != nil {
		t.Fatalf("assemble from cache: %v", err)
	}
	if len(second) != 1 || second[0].Value != 12 {
		t.Errorf("cached series = %+v, want the original record", second)
	}
}

// missingOnFetch lists an id that a direct get cannot resolve.
type missingOnFetch struct {
	store.Store
}

func (missingOnFetch) ListIDs(context.Context, string, measurement.Filter) ([]string, error) {
	return []string{"ghost"}, nil
}

func (missingOnFetch) GetByID(context.Context, string, string) (measurement.Measurement, error) {
	return measurement.Measurement{}, store.ErrNotFound
}

func TestAssembleMidFlightMissIsConsistencyError(t *testing.T) {
	a := NewAssembler(missingOnFetch{}, nil)
	_, err := a.Assemble(context.Background(), []string{"A"}, []string{"TEMP"}, granularity.H, measurement.Filter{})
	if !errors.Is(err, store.ErrConsistency) {
		t.Errorf("expected ErrConsistency, got %v", err)
	}
}

func TestKeyDeterministicAndFilterSensitive(t *testing.T) {
	dmin := 5.0
	tmin := time.Date(2021, 1, 1, 12, 30, 0, 0, time.UTC)
	f := measurement.Filter{DepthMin: &dmin, TimeMin: tmin}

	a := Key("OBSEA", "TEMP", granularity.H, f)
	b := Key("OBSEA", "TEMP", granularity.H, f)
	if a != b {
		t.Error("key must be deterministic")
	}
	if strings.Contains(a, ":") {
		t.Errorf("key %q leaked a colon", a)
	}
	if !strings.HasSuffix(a, ".json") {
		t.Errorf("key %q lost its extension", a)
	}

	qc := 1
	f2 := f
	f2.QC = &qc
	if Key("OBSEA", "TEMP", granularity.H, f2) == a {
		t.Error("qc filter must change the key")
	}
	if Key("OBSEA", "TEMP", granularity.D, f) == a {
		t.Error("rule must change the key")
	}
}
