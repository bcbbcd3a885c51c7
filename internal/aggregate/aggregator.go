// Package aggregate accumulates classified occurrences and answers ranking
// and lookup queries over them.
package aggregate

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/ppiankov/numscan/internal/dedupe"
	"github.com/ppiankov/numscan/internal/model"
)

// Aggregator holds every occurrence of a run. Merge may be called from
// several goroutines; views are computed in document reading order no matter
// in which order pages were merged.
type Aggregator struct {
	mu          sync.Mutex
	occurrences []model.NumberOccurrence
	view        *view // nil when stale
}

type view struct {
	unscaled      []model.NumberOccurrence // deduplicated, first-seen order
	scaled        []model.NumberOccurrence // deduplicated, first-seen order
	unscaledFound int
	scaledFound   int
}

// New creates an empty aggregator
func New() *Aggregator {
	return &Aggregator{}
}

// Merge adds the occurrences of one or more pages
func (a *Aggregator) Merge(occs []model.NumberOccurrence) {
	if len(occs) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.occurrences = append(a.occurrences, occs...)
	a.view = nil
}

// Len returns the number of merged occurrences before deduplication
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.occurrences)
}

// snapshot returns the current view, rebuilding it after a merge
func (a *Aggregator) snapshot() *view {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.view != nil {
		return a.view
	}

	ordered := slices.Clone(a.occurrences)
	slices.SortStableFunc(ordered, func(x, y model.NumberOccurrence) int {
		switch {
		case x.Before(y):
			return -1
		case y.Before(x):
			return 1
		}
		return 0
	})

	var scaled []model.NumberOccurrence
	for _, occ := range ordered {
		if occ.IsScaled {
			scaled = append(scaled, occ)
		}
	}

	a.view = &view{
		unscaled:      dedupe.Deduplicate(ordered, model.SetUnscaled),
		scaled:        dedupe.Deduplicate(scaled, model.SetScaled),
		unscaledFound: len(ordered),
		scaledFound:   len(scaled),
	}
	return a.view
}

func (v *view) set(set model.NumberSet) []model.NumberOccurrence {
	if set == model.SetScaled {
		return v.scaled
	}
	return v.unscaled
}

// Occurrences returns the deduplicated set in first-seen order
func (a *Aggregator) Occurrences(set model.NumberSet) []model.NumberOccurrence {
	return slices.Clone(a.snapshot().set(set))
}

// LargestUnscaled returns the occurrence with the largest raw value
func (a *Aggregator) LargestUnscaled() (model.NumberOccurrence, bool) {
	return largest(a.snapshot().unscaled, model.SetUnscaled)
}

// LargestScaled returns the scaled occurrence with the largest scaled value
func (a *Aggregator) LargestScaled() (model.NumberOccurrence, bool) {
	return largest(a.snapshot().scaled, model.SetScaled)
}

// largest picks the maximum; ties keep the first-seen occurrence
func largest(occs []model.NumberOccurrence, set model.NumberSet) (model.NumberOccurrence, bool) {
	if len(occs) == 0 {
		return model.NumberOccurrence{}, false
	}

	best := occs[0]
	for _, occ := range occs[1:] {
		if occ.RankValue(set) > best.RankValue(set) {
			best = occ
		}
	}
	return best, true
}

// TopN returns up to n occurrences of set sorted descending by rank value.
// Equal values keep first-seen order.
func (a *Aggregator) TopN(set model.NumberSet, n int) []model.NumberOccurrence {
	if n <= 0 {
		return []model.NumberOccurrence{}
	}

	ranked := slices.Clone(a.snapshot().set(set))
	slices.SortStableFunc(ranked, func(x, y model.NumberOccurrence) int {
		return cmp.Compare(y.RankValue(set), x.RankValue(set))
	})

	return ranked[:min(n, len(ranked))]
}

// CountSummary returns the occurrence counts before and after deduplication
func (a *Aggregator) CountSummary() model.CountSummary {
	v := a.snapshot()
	return model.CountSummary{
		UnscaledFound:        v.unscaledFound,
		UnscaledDeduplicated: len(v.unscaled),
		ScaledFound:          v.scaledFound,
		ScaledDeduplicated:   len(v.scaled),
	}
}

// FindValue returns every deduplicated occurrence whose rank value lies within
// tolerance of target. Unscaled matches (by raw value) come first, then scaled
// matches (by scaled value), each in first-seen order.
func (a *Aggregator) FindValue(target, tolerance float64) []model.ValueMatch {
	tolerance = math.Max(tolerance, 0)
	v := a.snapshot()

	var matches []model.ValueMatch
	for _, set := range []model.NumberSet{model.SetUnscaled, model.SetScaled} {
		for _, occ := range v.set(set) {
			if math.Abs(occ.RankValue(set)-target) <= tolerance {
				matches = append(matches, model.ValueMatch{Set: set, Occurrence: occ})
			}
		}
	}
	return matches
}
