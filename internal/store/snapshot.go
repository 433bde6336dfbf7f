package store

import (
	"slices"

	"github.com/redcorridor/intel-cli/internal/model"
)

// Snapshot is an immutable view of the aggregation state at one version.
// Readers hold a snapshot for as long as they like; ingestion publishes
// new snapshots without ever touching old ones. Callers must not mutate
// the entities a snapshot returns.
type Snapshot struct {
	version int64

	persons   map[string]*model.Person
	incidents map[string]*model.Incident

	// processed indexes the mention keys already merged in, keyed by
	// report ID. It makes re-ingestion of a report a no-op.
	processed map[string]map[int]bool

	// Creation orders. Iteration follows these so every read and every
	// replay sees entities in the same sequence.
	personOrder   []string
	incidentOrder []string
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		persons:   map[string]*model.Person{},
		incidents: map[string]*model.Incident{},
		processed: map[string]map[int]bool{},
	}
}

// Version increases by one on every successful commit. Read-layer caches
// key on it.
func (s *Snapshot) Version() int64 { return s.version }

// Person looks up a person by ID.
func (s *Snapshot) Person(id string) (*model.Person, bool) {
	p, ok := s.persons[id]
	return p, ok
}

// Incident looks up an incident by ID.
func (s *Snapshot) Incident(id string) (*model.Incident, bool) {
	in, ok := s.incidents[id]
	return in, ok
}

// Persons returns all persons in creation order.
func (s *Snapshot) Persons() []*model.Person {
	out := make([]*model.Person, len(s.personOrder))
	for i, id := range s.personOrder {
		out[i] = s.persons[id]
	}
	return out
}

// Incidents returns all incidents in creation order.
func (s *Snapshot) Incidents() []*model.Incident {
	out := make([]*model.Incident, len(s.incidentOrder))
	for i, id := range s.incidentOrder {
		out[i] = s.incidents[id]
	}
	return out
}

// Processed reports whether the given mention key has been ingested.
func (s *Snapshot) Processed(reportID string, mentionIndex int) bool {
	return s.processed[reportID][mentionIndex]
}

// PersonCount and IncidentCount size the registry without copying it.
func (s *Snapshot) PersonCount() int   { return len(s.persons) }
func (s *Snapshot) IncidentCount() int { return len(s.incidents) }

// State is the serializable form of a snapshot, used by the archive to
// persist registry state across restarts. Entity order in the slices is
// creation order.
type State struct {
	Version   int64             `json:"version"`
	Persons   []*model.Person   `json:"persons"`
	Incidents []*model.Incident `json:"incidents"`
	Processed map[string][]int  `json:"processed"`
}

// ExportState captures the snapshot as a State.
func (s *Snapshot) ExportState() *State {
	st := &State{
		Version:   s.version,
		Persons:   s.Persons(),
		Incidents: s.Incidents(),
		Processed: make(map[string][]int, len(s.processed)),
	}
	for reportID, indexes := range s.processed {
		keys := make([]int, 0, len(indexes))
		for idx := range indexes {
			keys = append(keys, idx)
		}
		slices.Sort(keys)
		st.Processed[reportID] = keys
	}
	return st
}
