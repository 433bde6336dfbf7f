// Package archive persists raw extraction records in arrival order and
// periodic snapshots of registry state. The report table is the system
// of record: replaying it through a fresh store reproduces the registry
// exactly, IDs included.
package archive

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

// Archive is the persistence interface for the aggregation engine.
type Archive interface {
	// SaveReport appends one raw record. Saving the same report ID twice
	// is a no-op so re-ingestion stays idempotent end to end.
	SaveReport(ctx context.Context, rec *model.ExtractionRecord) error

	// ListReports returns every archived record in arrival order.
	ListReports(ctx context.Context) ([]*model.ExtractionRecord, error)

	// SaveState persists a registry snapshot, replacing the previous one.
	SaveState(ctx context.Context, st *store.State) error

	// LoadState returns the last saved registry snapshot, or nil when no
	// snapshot has been saved yet.
	LoadState(ctx context.Context) (*store.State, error)

	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	Close() error
}

// New opens an archive for the given driver ("sqlite" or "postgres").
func New(ctx context.Context, driver, dsn string) (Archive, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("archive: unknown driver %q", driver)
	}
}
