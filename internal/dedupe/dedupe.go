// Package dedupe collapses number occurrences that cannot be told apart.
package dedupe

import "github.com/ppiankov/numscan/internal/model"

// Key identifies an occurrence for deduplication. Different spellings of the
// same number ("1000" and "1,000") and different pages stay distinct.
type Key struct {
	Value        float64
	OriginalText string
	Page         int
}

// KeyFor returns the dedup key of occ within set; the value component is the
// value the set is ranked by.
func KeyFor(occ model.NumberOccurrence, set model.NumberSet) Key {
	return Key{
		Value:        occ.RankValue(set),
		OriginalText: occ.OriginalText,
		Page:         occ.Page,
	}
}

// Deduplicate keeps the first occurrence of every key, preserving input order.
// It is idempotent.
func Deduplicate(occs []model.NumberOccurrence, set model.NumberSet) []model.NumberOccurrence {
	seen := make(map[Key]bool, len(occs))
	unique := make([]model.NumberOccurrence, 0, len(occs))

	for _, occ := range occs {
		key := KeyFor(occ, set)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, occ)
		}
	}

	return unique
}
