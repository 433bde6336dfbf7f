package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

// SQLiteArchive implements Archive using modernc.org/sqlite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteArchive{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id   TEXT NOT NULL UNIQUE,
	filename    TEXT,
	uploaded_at DATETIME NOT NULL,
	record      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_state (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	version  INTEGER NOT NULL,
	state    TEXT NOT NULL,
	saved_at DATETIME NOT NULL
);
`

func (a *SQLiteArchive) Migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

func (a *SQLiteArchive) SaveReport(ctx context.Context, rec *model.ExtractionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal report %s", rec.ReportID)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, filename, uploaded_at, record) VALUES (?, ?, ?, ?)
		 ON CONFLICT(report_id) DO NOTHING`,
		rec.ReportID, rec.Filename, rec.UploadedAt.UTC(), string(payload),
	)
	return eris.Wrapf(err, "sqlite: insert report %s", rec.ReportID)
}

func (a *SQLiteArchive) ListReports(ctx context.Context) ([]*model.ExtractionRecord, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT record FROM reports ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var out []*model.ExtractionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		rec := &model.ExtractionRecord{}
		if err := json.Unmarshal([]byte(payload), rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal report")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate reports")
}

func (a *SQLiteArchive) SaveState(ctx context.Context, st *store.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal state")
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO registry_state (id, version, state, saved_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version, state = excluded.state, saved_at = excluded.saved_at`,
		st.Version, string(payload), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save state")
}

func (a *SQLiteArchive) LoadState(ctx context.Context) (*store.State, error) {
	var payload string
	err := a.db.QueryRowContext(ctx, `SELECT state FROM registry_state WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load state")
	}
	st := &store.State{}
	if err := json.Unmarshal([]byte(payload), st); err != nil {
		return nil, eris.Wrap(store.ErrCorrupted, "sqlite: unmarshal state")
	}
	return st, nil
}
