// Package store persists compiled rule repositories and classification
// run history in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/obradata/obrataxo/internal/taxonomy"
)

// Cache is a SQLite-backed cache of compiled repositories keyed by the
// source-tree fingerprint, so unchanged rule directories skip the
// YAML walk on repeat runs.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database and configures WAL mode.
func Open(dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	c := &Cache{db: db}
	if err := c.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS repositories (
	fingerprint TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS classify_runs (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	input       TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	unknown     INTEGER NOT NULL,
	uncertain   INTEGER NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_repositories_created_at ON repositories(created_at);
CREATE INDEX IF NOT EXISTS idx_classify_runs_fingerprint ON classify_runs(fingerprint);
`

func (c *Cache) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached repository for fingerprint, or nil on a miss.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*taxonomy.Repository, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM repositories WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get repository %s", fingerprint)
	}

	var repo taxonomy.Repository
	if err := json.Unmarshal([]byte(payload), &repo); err != nil {
		// corrupt entry, treat as a miss so the caller rebuilds
		return nil, nil
	}
	return &repo, nil
}

// Put stores a compiled repository under its fingerprint.
func (c *Cache) Put(ctx context.Context, fingerprint string, repo *taxonomy.Repository) error {
	payload, err := json.Marshal(repo)
	if err != nil {
		return eris.Wrap(err, "store: marshal repository")
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO repositories (fingerprint, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		fingerprint, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "store: put repository %s", fingerprint)
}

// Prune drops cached repositories older than maxAge and returns the
// number removed.
func (c *Cache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM repositories WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "store: prune repositories")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "store: prune rows affected")
}

// Run is one recorded classification invocation.
type Run struct {
	ID          string
	Fingerprint string
	Input       string
	Rows        int
	Unknown     int
	Uncertain   int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// RecordRun appends a classification run to the history log.
func (c *Cache) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO classify_runs (id, fingerprint, input, rows, unknown, uncertain, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Fingerprint, run.Input, run.Rows, run.Unknown, run.Uncertain,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "store: record run")
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (c *Cache) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, fingerprint, input, rows, unknown, uncertain, started_at, finished_at
		 FROM classify_runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.Input, &r.Rows, &r.Unknown,
			&r.Uncertain, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "store: list runs iterate")
}
