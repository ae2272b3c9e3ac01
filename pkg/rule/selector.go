// Package rule picks the time-aggregation resolution for a query.
//
// Every measurement is pre-aggregated at sixteen granularities. For a given
// filter the selector probes the record count at each level and picks the
// coarsest level whose count stays under the configured plotting budget, so
// charts never receive more points than the renderer can handle.
package rule

import (
	"context"
	"errors"
	"fmt"

	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/store"
)

// ErrNoData: no granularity level holds a single record for the filter.
// Expected outcome, not a failure; callers surface it as "no data".
var ErrNoData = errors.New("no data for filter")

// Selector chooses granularity rules against a store.
type Selector struct {
	store         store.Store
	maxPlotPoints int
}

// NewSelector creates a selector with the given plotting budget.
func NewSelector(st store.Store, maxPlotPoints int) *Selector {
	return &Selector{store: st, maxPlotPoints: maxPlotPoints}
}

// Select returns the best rule for the cartesian product of platforms and
// parameters under the given filter. Each pair is searched independently
// and the coarsest per-pair result wins, so the final rule is coarse
// enough for the largest series in the request.
//
// Returns ErrNoData when no pair has any records, and propagates
// store.ErrConnection untouched: a single unreachable count probe aborts
// the whole selection.
func (s *Selector) Select(ctx context.Context, platforms, parameters []string, f measurement.Filter) (granularity.Rule, error) {
	if len(platforms) == 0 {
		return "", fmt.Errorf("rule selection requires at least one platform code")
	}
	if len(parameters) == 0 {
		return "", fmt.Errorf("rule selection requires at least one parameter")
	}

	var best granularity.Rule
	for _, platform := range platforms {
		for _, parameter := range parameters {
			pairRule, found, err := s.selectPair(ctx, f.WithPair(platform, parameter))
			if err != nil {
				return "", err
			}
			if found && granularity.Rank(pairRule) > granularity.Rank(best) {
				best = pairRule
			}
		}
	}
	if best == "" {
		return "", ErrNoData
	}
	return best, nil
}

// selectPair runs the single-pair search: probe every level in fixed
// finest-to-coarsest order and keep the last one whose count is non-zero
// and under budget. The scan never stops early; a fine level that blows
// the budget is simply skipped in favor of any coarser level under it.
// M is the unconditional last resort whenever the pair has data at all.
func (s *Selector) selectPair(ctx context.Context, f measurement.Filter) (granularity.Rule, bool, error) {
	var rule granularity.Rule
	hasData := false

	for _, level := range granularity.Rules {
		count, err := s.store.Count(ctx, granularity.Location(level, granularity.Mean), f)
		if err != nil {
			return "", false, fmt.Errorf("count at %s: %w", level, err)
		}
		if count == 0 {
			continue
		}
		hasData = true
		if count < s.maxPlotPoints {
			rule = level
		}
	}

	if !hasData {
		return "", false, nil
	}
	if rule == "" {
		rule = granularity.M
	}
	return rule, true, nil
}
