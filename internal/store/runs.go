package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/numscan/internal/model"
)

// Run is an archived scan.
type Run struct {
	ID          string             `json:"id"`
	Source      string             `json:"source"`
	GeneratedAt time.Time          `json:"generated_at"`
	PageCount   int                `json:"page_count"`
	NoData      bool               `json:"no_data"`
	Settings    model.Settings     `json:"settings"`
	Summary     model.CountSummary `json:"summary"`
}

// SaveRun archives a report together with both deduplicated sets.
func (s *Store) SaveRun(ctx context.Context, report *model.Report, unscaled, scaled []model.NumberOccurrence) error {
	settings, err := json.Marshal(report.Settings)
	if err != nil {
		return eris.Wrap(err, "store: marshal settings")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, source, generated_at, page_count, no_data, settings,
			 unscaled_found, unscaled_unique, scaled_found, scaled_unique)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		report.RunID, report.Source, report.GeneratedAt.UnixMilli(), report.PageCount, report.NoData, string(settings),
		report.Summary.UnscaledFound, report.Summary.UnscaledDeduplicated,
		report.Summary.ScaledFound, report.Summary.ScaledDeduplicated,
	)
	if err != nil {
		return eris.Wrapf(err, "store: insert run %s", report.RunID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO occurrences
			(run_id, set_name, position, value, scaled_value, original_text, page,
			 byte_offset, context, scale_factor, scale_source, scale_hint)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return eris.Wrap(err, "store: prepare occurrences")
	}
	defer func() { _ = stmt.Close() }()

	for _, set := range []struct {
		name model.NumberSet
		occs []model.NumberOccurrence
	}{
		{model.SetUnscaled, unscaled},
		{model.SetScaled, scaled},
	} {
		for i, occ := range set.occs {
			_, err := stmt.ExecContext(ctx,
				report.RunID, string(set.name), i, occ.Value, occ.ScaledValue, occ.OriginalText, occ.Page,
				occ.Offset, occ.Context, occ.ScaleFactor.String(), occ.ScaleSource.String(), occ.ScaleHint,
			)
			if err != nil {
				return eris.Wrapf(err, "store: insert %s occurrence %d", set.name, i)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: commit")
	}
	return nil
}

const runColumns = `id, source, generated_at, page_count, no_data, settings,
	unscaled_found, unscaled_unique, scaled_found, scaled_unique`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var generatedAt int64
	var settings string

	err := row.Scan(&r.ID, &r.Source, &generatedAt, &r.PageCount, &r.NoData, &settings,
		&r.Summary.UnscaledFound, &r.Summary.UnscaledDeduplicated,
		&r.Summary.ScaledFound, &r.Summary.ScaledDeduplicated)
	if err != nil {
		return nil, err
	}

	r.GeneratedAt = time.UnixMilli(generatedAt).UTC()
	if err := json.Unmarshal([]byte(settings), &r.Settings); err != nil {
		return nil, eris.Wrapf(err, "store: decode settings of run %s", r.ID)
	}
	return r, nil
}

// GetRun retrieves a run by ID; "latest" or an empty ID selects the most
// recent run. Returns nil when no run matches.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var row *sql.Row
	if id == "" || id == "latest" {
		row = s.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY generated_at DESC, rowid DESC LIMIT 1`)
	} else {
		row = s.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	}

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get run")
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY generated_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its occurrences.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "store: delete run %s", id)
	}
	return nil
}
