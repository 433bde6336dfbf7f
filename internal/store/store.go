// Package store holds the in-memory aggregation state: the person and
// incident registries, the processed-mention index, and the commit path
// that advances them. State is append-only; entities are never deleted
// and a published snapshot is never mutated.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCorrupted marks an integrity violation in persisted or in-flight
// state (duplicate IDs, dangling references). It is fatal to the
// operation that hit it; the last good snapshot stays published.
var ErrCorrupted = eris.New("store: corrupted aggregation state")

// Store is the single-writer, many-reader aggregation store. Writers are
// serialized through Commit; readers grab an immutable snapshot through
// Snapshot and never block writers.
type Store struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

// New returns a store publishing an empty version-zero snapshot.
func New() *Store {
	s := &Store{}
	s.snap.Store(emptySnapshot())
	return s
}

// Snapshot returns the currently published state.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Commit runs fn against a copy-on-write transaction over the current
// snapshot. If fn returns an error nothing is published and the store is
// unchanged; otherwise the transaction's state becomes the next snapshot
// with version+1. Commits are all-or-nothing per call, so one report's
// mentions land atomically when ingested in a single commit.
func (s *Store) Commit(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.snap.Load()
	tx := newTx(base)
	if err := fn(tx); err != nil {
		return err
	}

	s.snap.Store(tx.freeze())
	return nil
}

// ImportState validates a persisted State and publishes it wholesale,
// replacing whatever is currently loaded. Used on startup to restore the
// registry from the archive.
func (s *Store) ImportState(st *State) error {
	log := zap.L().With(zap.String("component", "store"))

	snap := emptySnapshot()
	snap.version = st.Version

	for _, p := range st.Persons {
		if p.ID == "" {
			return eris.Wrap(ErrCorrupted, "person with empty ID")
		}
		if _, dup := snap.persons[p.ID]; dup {
			return eris.Wrapf(ErrCorrupted, "duplicate person %s", p.ID)
		}
		snap.persons[p.ID] = p.Clone()
		snap.personOrder = append(snap.personOrder, p.ID)
	}
	for _, in := range st.Incidents {
		if in.ID == "" {
			return eris.Wrap(ErrCorrupted, "incident with empty ID")
		}
		if _, dup := snap.incidents[in.ID]; dup {
			return eris.Wrapf(ErrCorrupted, "duplicate incident %s", in.ID)
		}
		snap.incidents[in.ID] = in.Clone()
		snap.incidentOrder = append(snap.incidentOrder, in.ID)
	}

	// Cross-checks: every reference between registries must resolve.
	for _, id := range snap.personOrder {
		p := snap.persons[id]
		for _, incidentID := range p.IncidentIDs {
			if _, ok := snap.incidents[incidentID]; !ok {
				return eris.Wrapf(ErrCorrupted, "person %s references missing incident %s", p.ID, incidentID)
			}
		}
	}
	for _, id := range snap.incidentOrder {
		in := snap.incidents[id]
		for _, ref := range in.People {
			if _, ok := snap.persons[ref.PersonID]; !ok {
				return eris.Wrapf(ErrCorrupted, "incident %s references missing person %s", in.ID, ref.PersonID)
			}
		}
	}

	for reportID, indexes := range st.Processed {
		set := make(map[int]bool, len(indexes))
		for _, idx := range indexes {
			set[idx] = true
		}
		snap.processed[reportID] = set
	}

	s.mu.Lock()
	s.snap.Store(snap)
	s.mu.Unlock()

	log.Info("store: state restored",
		zap.Int64("version", snap.version),
		zap.Int("persons", len(snap.persons)),
		zap.Int("incidents", len(snap.incidents)))
	return nil
}
