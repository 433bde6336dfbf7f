// Package ingest drives reports through the aggregation pipeline: the
// record is archived, its mentions are resolved and clustered, and the
// whole report lands in the store as one atomic commit.
package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/redcorridor/intel-cli/internal/adapter"
	"github.com/redcorridor/intel-cli/internal/archive"
	"github.com/redcorridor/intel-cli/internal/cluster"
	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/resolve"
	"github.com/redcorridor/intel-cli/internal/store"
)

// Pipeline ingests extraction records into the aggregation store and
// keeps the archive in sync. A nil archive disables persistence.
type Pipeline struct {
	store     *store.Store
	resolver  *resolve.Resolver
	clusterer *cluster.Clusterer
	archive   archive.Archive
	log       *zap.Logger
}

// New wires a pipeline.
func New(s *store.Store, r *resolve.Resolver, c *cluster.Clusterer, a archive.Archive) *Pipeline {
	return &Pipeline{
		store:     s,
		resolver:  r,
		clusterer: c,
		archive:   a,
		log:       zap.L().With(zap.String("component", "ingest")),
	}
}

// Result summarizes one report's ingestion.
type Result struct {
	ReportID         string `json:"report_id"`
	Mentions         int    `json:"mentions"`
	Duplicates       int    `json:"duplicates"`
	PersonsCreated   int    `json:"persons_created"`
	IncidentsCreated int    `json:"incidents_created"`
	Ambiguous        int    `json:"ambiguous"`
}

// IngestRecord processes one record. The archive write happens first so
// the raw report survives even if aggregation fails; the store commit is
// all-or-nothing across the report's mentions. Re-ingesting an already
// processed report is a silent no-op per mention.
func (p *Pipeline) IngestRecord(ctx context.Context, rec *model.ExtractionRecord) (*Result, error) {
	if p.archive != nil {
		if err := p.archive.SaveReport(ctx, rec); err != nil {
			return nil, err
		}
	}

	res, err := p.apply(rec)
	if err != nil {
		return nil, err
	}

	if p.archive != nil {
		if err := p.archive.SaveState(ctx, p.store.Snapshot().ExportState()); err != nil {
			return nil, err
		}
	}

	p.log.Info("ingest: report processed",
		zap.String("report_id", rec.ReportID),
		zap.Int("mentions", res.Mentions),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("persons_created", res.PersonsCreated),
		zap.Int("incidents_created", res.IncidentsCreated))
	return res, nil
}

// apply runs the resolve/cluster passes for every mention inside one
// commit.
func (p *Pipeline) apply(rec *model.ExtractionRecord) (*Result, error) {
	mentions := adapter.Mentions(rec)
	res := &Result{ReportID: rec.ReportID, Mentions: len(mentions)}

	err := p.store.Commit(func(tx *store.Tx) error {
		for _, m := range mentions {
			if tx.Processed(m.ReportID, m.Index) {
				res.Duplicates++
				continue
			}

			decision, err := p.resolver.Resolve(tx, m)
			if eris.Is(err, resolve.ErrNoName) {
				p.log.Warn("ingest: skipping unresolvable mention",
					zap.String("report_id", m.ReportID),
					zap.Int("mention_index", m.Index),
					zap.String("raw_name", m.RawName))
				tx.MarkProcessed(m.ReportID, m.Index)
				continue
			}
			if err != nil {
				return err
			}
			if decision.Created {
				res.PersonsCreated++
			}
			if decision.Ambiguous {
				res.Ambiguous++
			}

			if m.Type.IncidentBearing() {
				person, ok := tx.Person(decision.PersonID)
				if !ok {
					return eris.Wrapf(store.ErrCorrupted, "ingest: resolved person %s missing", decision.PersonID)
				}
				cd, err := p.clusterer.Cluster(tx, m, model.PersonRef{PersonID: person.ID, Name: person.CanonicalName})
				if err != nil {
					return err
				}
				if cd.Created {
					res.IncidentsCreated++
				}
				if cd.Ambiguous {
					res.Ambiguous++
				}
			}

			tx.MarkProcessed(m.ReportID, m.Index)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Restore loads the last saved registry state from the archive into the
// store. Returns false when no state was saved yet.
func (p *Pipeline) Restore(ctx context.Context) (bool, error) {
	if p.archive == nil {
		return false, nil
	}
	st, err := p.archive.LoadState(ctx)
	if err != nil {
		return false, err
	}
	if st == nil {
		return false, nil
	}
	if err := p.store.ImportState(st); err != nil {
		return false, err
	}
	return true, nil
}

// Rebuild replays the entire archive in arrival order through the
// pipeline. The store must be empty; replay reproduces the exact same
// IDs and merge decisions as the original ingestion sequence.
func (p *Pipeline) Rebuild(ctx context.Context) (int, error) {
	if p.archive == nil {
		return 0, eris.New("ingest: rebuild requires an archive")
	}
	if p.store.Snapshot().PersonCount() > 0 || p.store.Snapshot().IncidentCount() > 0 {
		return 0, eris.New("ingest: rebuild requires an empty store")
	}

	reports, err := p.archive.ListReports(ctx)
	if err != nil {
		return 0, err
	}

	for _, rec := range reports {
		if _, err := p.apply(rec); err != nil {
			return 0, eris.Wrapf(err, "ingest: replay report %s", rec.ReportID)
		}
	}

	if err := p.archive.SaveState(ctx, p.store.Snapshot().ExportState()); err != nil {
		return 0, err
	}

	p.log.Info("ingest: rebuild complete",
		zap.Int("reports", len(reports)),
		zap.Int("persons", p.store.Snapshot().PersonCount()),
		zap.Int("incidents", p.store.Snapshot().IncidentCount()))
	return len(reports), nil
}
