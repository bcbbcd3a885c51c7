package store

// Schema contains the DDL for the run archive.
const Schema = `
-- One row per scanned document
CREATE TABLE IF NOT EXISTS runs (
    id                  TEXT PRIMARY KEY,
    source              TEXT NOT NULL,
    generated_at        INTEGER NOT NULL,
    page_count          INTEGER NOT NULL,
    no_data             INTEGER NOT NULL DEFAULT 0,
    settings            TEXT NOT NULL DEFAULT '{}',
    unscaled_found      INTEGER NOT NULL DEFAULT 0,
    unscaled_unique     INTEGER NOT NULL DEFAULT 0,
    scaled_found        INTEGER NOT NULL DEFAULT 0,
    scaled_unique       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(generated_at DESC);

-- Deduplicated occurrences of a run; position is first-seen order within the set
CREATE TABLE IF NOT EXISTS occurrences (
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    set_name        TEXT NOT NULL,
    position        INTEGER NOT NULL,
    value           REAL NOT NULL,
    scaled_value    REAL NOT NULL,
    original_text   TEXT NOT NULL,
    page            INTEGER NOT NULL,
    byte_offset     INTEGER NOT NULL,
    context         TEXT NOT NULL DEFAULT '',
    scale_factor    TEXT NOT NULL DEFAULT 'none',
    scale_source    TEXT NOT NULL DEFAULT 'none',
    scale_hint      TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, set_name, position)
);
CREATE INDEX IF NOT EXISTS idx_occurrences_value ON occurrences(run_id, value);
CREATE INDEX IF NOT EXISTS idx_occurrences_scaled ON occurrences(run_id, scaled_value);
`
