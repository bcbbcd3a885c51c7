package store

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/model"
)

// FindValue returns the archived occurrences of a run whose rank value lies
// within tolerance of target: unscaled matches (raw value) first, then scaled
// matches (scaled value), each in first-seen order.
func (s *Store) FindValue(ctx context.Context, runID string, target, tolerance float64) ([]model.ValueMatch, error) {
	tolerance = math.Max(tolerance, 0)

	rows, err := s.DB.QueryContext(ctx, `
		SELECT set_name, value, scaled_value, original_text, page, byte_offset,
		       context, scale_factor, scale_source, scale_hint
		FROM occurrences
		WHERE run_id = ?
		  AND ABS((CASE set_name WHEN 'scaled' THEN scaled_value ELSE value END) - ?) <= ?
		ORDER BY CASE set_name WHEN 'unscaled' THEN 0 ELSE 1 END, position`,
		runID, target, tolerance)
	if err != nil {
		return nil, eris.Wrap(err, "store: find value")
	}
	defer func() { _ = rows.Close() }()

	var matches []model.ValueMatch
	for rows.Next() {
		var set, factor, source string
		var occ model.NumberOccurrence

		err := rows.Scan(&set, &occ.Value, &occ.ScaledValue, &occ.OriginalText, &occ.Page, &occ.Offset,
			&occ.Context, &factor, &source, &occ.ScaleHint)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan occurrence")
		}

		if occ.ScaleFactor, err = model.ParseScaleFactor(factor); err != nil {
			return nil, eris.Wrap(err, "store: decode scale factor")
		}
		if occ.ScaleSource, err = model.ParseScaleSource(source); err != nil {
			return nil, eris.Wrap(err, "store: decode scale source")
		}
		occ.IsScaled = occ.ScaleFactor != model.ScaleNone

		matches = append(matches, model.ValueMatch{Set: model.NumberSet(set), Occurrence: occ})
	}
	return matches, rows.Err()
}

// CountOccurrences returns the number of archived occurrences of a run per set.
func (s *Store) CountOccurrences(ctx context.Context, runID string) (map[model.NumberSet]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT set_name, COUNT(*) FROM occurrences WHERE run_id = ? GROUP BY set_name`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "store: count occurrences")
	}
	defer func() { _ = rows.Close() }()

	counts := map[model.NumberSet]int{}
	for rows.Next() {
		var set string
		var n int
		if err := rows.Scan(&set, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan count")
		}
		counts[model.NumberSet(set)] = n
	}
	return counts, rows.Err()
}
