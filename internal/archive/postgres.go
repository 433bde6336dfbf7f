package archive

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

// Pool is the subset of pgxpool.Pool the archive uses. Tests substitute
// a pgxmock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresArchive implements Archive using pgx.
type PostgresArchive struct {
	pool Pool
}

// NewPostgres connects a pool to the given connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresArchive{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresArchive {
	return &PostgresArchive{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	seq         BIGSERIAL PRIMARY KEY,
	report_id   TEXT NOT NULL UNIQUE,
	filename    TEXT,
	uploaded_at TIMESTAMPTZ NOT NULL,
	record      JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_state (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	version  BIGINT NOT NULL,
	state    JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL
);
`

func (a *PostgresArchive) Migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}

func (a *PostgresArchive) SaveReport(ctx context.Context, rec *model.ExtractionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal report %s", rec.ReportID)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO reports (report_id, filename, uploaded_at, record) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (report_id) DO NOTHING`,
		rec.ReportID, rec.Filename, rec.UploadedAt.UTC(), payload,
	)
	return eris.Wrapf(err, "postgres: insert report %s", rec.ReportID)
}

func (a *PostgresArchive) ListReports(ctx context.Context) ([]*model.ExtractionRecord, error) {
	rows, err := a.pool.Query(ctx, `SELECT record FROM reports ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var out []*model.ExtractionRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		rec := &model.ExtractionRecord{}
		if err := json.Unmarshal(payload, rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal report")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate reports")
}

func (a *PostgresArchive) SaveState(ctx context.Context, st *store.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal state")
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO registry_state (id, version, state, saved_at) VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, state = EXCLUDED.state, saved_at = EXCLUDED.saved_at`,
		st.Version, payload, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save state")
}

func (a *PostgresArchive) LoadState(ctx context.Context) (*store.State, error) {
	var payload []byte
	err := a.pool.QueryRow(ctx, `SELECT state FROM registry_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load state")
	}
	st := &store.State{}
	if err := json.Unmarshal(payload, st); err != nil {
		return nil, eris.Wrap(store.ErrCorrupted, "postgres: unmarshal state")
	}
	return st, nil
}
