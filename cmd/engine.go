package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/redcorridor/intel-cli/internal/archive"
	"github.com/redcorridor/intel-cli/internal/cluster"
	"github.com/redcorridor/intel-cli/internal/ingest"
	"github.com/redcorridor/intel-cli/internal/query"
	"github.com/redcorridor/intel-cli/internal/resolve"
	"github.com/redcorridor/intel-cli/internal/store"
)

// engine bundles the wired aggregation components for a command run.
type engine struct {
	Store    *store.Store
	Archive  archive.Archive
	Pipeline *ingest.Pipeline
	Query    *query.Service
}

// initEngine opens the archive and wires store, pipeline, and query
// service from config. When restore is true the last persisted registry
// state is loaded, so commands see everything ingested before.
func initEngine(ctx context.Context, restore bool) (*engine, error) {
	a, err := archive.New(ctx, cfg.Archive.Driver, cfg.Archive.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open archive")
	}
	if err := a.Migrate(ctx); err != nil {
		a.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate archive")
	}

	s := store.New()
	p := ingest.New(s,
		resolve.New(cfg.Matching.PersonThreshold),
		cluster.New(cfg.Matching.IncidentThreshold),
		a,
	)

	if restore {
		ok, err := p.Restore(ctx)
		if err != nil {
			a.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "restore registry state")
		}
		if ok {
			snap := s.Snapshot()
			zap.L().Info("registry state restored",
				zap.Int("persons", snap.PersonCount()),
				zap.Int("incidents", snap.IncidentCount()),
			)
		}
	}

	return &engine{
		Store:    s,
		Archive:  a,
		Pipeline: p,
		Query:    query.New(s),
	}, nil
}

func (e *engine) Close() {
	if err := e.Archive.Close(); err != nil {
		zap.L().Warn("archive close", zap.Error(err))
	}
}
