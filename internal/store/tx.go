package store

import (
	"github.com/rotisserie/eris"

	"github.com/redcorridor/intel-cli/internal/model"
)

// Tx is a copy-on-write transaction over a base snapshot. Reads fall
// through to the base; the first write to an entity clones it into the
// transaction's dirty set. Nothing in the base is ever touched, so an
// abandoned transaction costs nothing.
type Tx struct {
	base *Snapshot

	dirtyPersons   map[string]*model.Person
	dirtyIncidents map[string]*model.Incident

	newPersonOrder   []string
	newIncidentOrder []string

	processedAdds map[string]map[int]bool
}

func newTx(base *Snapshot) *Tx {
	return &Tx{
		base:           base,
		dirtyPersons:   map[string]*model.Person{},
		dirtyIncidents: map[string]*model.Incident{},
		processedAdds:  map[string]map[int]bool{},
	}
}

// Person returns the transaction's view of a person. The result is
// read-only; use MutablePerson to change it.
func (tx *Tx) Person(id string) (*model.Person, bool) {
	if p, ok := tx.dirtyPersons[id]; ok {
		return p, true
	}
	return tx.base.Person(id)
}

// MutablePerson returns a person that may be modified in place. The
// first call for an ID clones the base entity into the dirty set.
func (tx *Tx) MutablePerson(id string) (*model.Person, bool) {
	if p, ok := tx.dirtyPersons[id]; ok {
		return p, true
	}
	p, ok := tx.base.Person(id)
	if !ok {
		return nil, false
	}
	cp := p.Clone()
	tx.dirtyPersons[id] = cp
	return cp, true
}

// Incident returns the transaction's view of an incident, read-only.
func (tx *Tx) Incident(id string) (*model.Incident, bool) {
	if in, ok := tx.dirtyIncidents[id]; ok {
		return in, true
	}
	return tx.base.Incident(id)
}

// MutableIncident returns an incident that may be modified in place.
func (tx *Tx) MutableIncident(id string) (*model.Incident, bool) {
	if in, ok := tx.dirtyIncidents[id]; ok {
		return in, true
	}
	in, ok := tx.base.Incident(id)
	if !ok {
		return nil, false
	}
	cp := in.Clone()
	tx.dirtyIncidents[id] = cp
	return cp, true
}

// Persons yields the transaction's view of every person in creation
// order, including ones created earlier in this transaction.
func (tx *Tx) Persons() []*model.Person {
	out := make([]*model.Person, 0, len(tx.base.personOrder)+len(tx.newPersonOrder))
	for _, id := range tx.base.personOrder {
		p, _ := tx.Person(id)
		out = append(out, p)
	}
	for _, id := range tx.newPersonOrder {
		out = append(out, tx.dirtyPersons[id])
	}
	return out
}

// Incidents yields the transaction's view of every incident in creation
// order.
func (tx *Tx) Incidents() []*model.Incident {
	out := make([]*model.Incident, 0, len(tx.base.incidentOrder)+len(tx.newIncidentOrder))
	for _, id := range tx.base.incidentOrder {
		in, _ := tx.Incident(id)
		out = append(out, in)
	}
	for _, id := range tx.newIncidentOrder {
		out = append(out, tx.dirtyIncidents[id])
	}
	return out
}

// CreatePerson adds a new person. The ID must be unused; a collision
// means deterministic ID derivation went wrong somewhere upstream.
func (tx *Tx) CreatePerson(p *model.Person) error {
	if p.ID == "" {
		return eris.Wrap(ErrCorrupted, "create person with empty ID")
	}
	if _, exists := tx.Person(p.ID); exists {
		return eris.Wrapf(ErrCorrupted, "person %s already exists", p.ID)
	}
	tx.dirtyPersons[p.ID] = p
	tx.newPersonOrder = append(tx.newPersonOrder, p.ID)
	return nil
}

// CreateIncident adds a new incident under the same rules as CreatePerson.
func (tx *Tx) CreateIncident(in *model.Incident) error {
	if in.ID == "" {
		return eris.Wrap(ErrCorrupted, "create incident with empty ID")
	}
	if _, exists := tx.Incident(in.ID); exists {
		return eris.Wrapf(ErrCorrupted, "incident %s already exists", in.ID)
	}
	tx.dirtyIncidents[in.ID] = in
	tx.newIncidentOrder = append(tx.newIncidentOrder, in.ID)
	return nil
}

// Processed reports whether a mention key was ingested, either in the
// base snapshot or earlier in this transaction.
func (tx *Tx) Processed(reportID string, mentionIndex int) bool {
	if tx.processedAdds[reportID][mentionIndex] {
		return true
	}
	return tx.base.Processed(reportID, mentionIndex)
}

// MarkProcessed records a mention key as ingested.
func (tx *Tx) MarkProcessed(reportID string, mentionIndex int) {
	set, ok := tx.processedAdds[reportID]
	if !ok {
		set = map[int]bool{}
		tx.processedAdds[reportID] = set
	}
	set[mentionIndex] = true
}

// freeze materializes the transaction into the next snapshot. Maps are
// rebuilt so the new snapshot shares no mutable structure with the
// transaction.
func (tx *Tx) freeze() *Snapshot {
	next := &Snapshot{
		version:       tx.base.version + 1,
		persons:       make(map[string]*model.Person, len(tx.base.persons)+len(tx.newPersonOrder)),
		incidents:     make(map[string]*model.Incident, len(tx.base.incidents)+len(tx.newIncidentOrder)),
		processed:     make(map[string]map[int]bool, len(tx.base.processed)+len(tx.processedAdds)),
		personOrder:   make([]string, 0, len(tx.base.personOrder)+len(tx.newPersonOrder)),
		incidentOrder: make([]string, 0, len(tx.base.incidentOrder)+len(tx.newIncidentOrder)),
	}

	for _, id := range tx.base.personOrder {
		p, _ := tx.Person(id)
		next.persons[id] = p
		next.personOrder = append(next.personOrder, id)
	}
	for _, id := range tx.newPersonOrder {
		next.persons[id] = tx.dirtyPersons[id]
		next.personOrder = append(next.personOrder, id)
	}

	for _, id := range tx.base.incidentOrder {
		in, _ := tx.Incident(id)
		next.incidents[id] = in
		next.incidentOrder = append(next.incidentOrder, id)
	}
	for _, id := range tx.newIncidentOrder {
		next.incidents[id] = tx.dirtyIncidents[id]
		next.incidentOrder = append(next.incidentOrder, id)
	}

	for reportID, indexes := range tx.base.processed {
		set := make(map[int]bool, len(indexes))
		for idx := range indexes {
			set[idx] = true
		}
		next.processed[reportID] = set
	}
	for reportID, indexes := range tx.processedAdds {
		set, ok := next.processed[reportID]
		if !ok {
			set = make(map[int]bool, len(indexes))
			next.processed[reportID] = set
		}
		for idx := range indexes {
			set[idx] = true
		}
	}

	return next
}
