package model

import (
	"slices"
	"time"
)

// PersonRef is a lightweight reference to a resolved person from an incident.
type PersonRef struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
}

// Incident is a clustered real-world event aggregated from one or more
// mentions across reports.
type Incident struct {
	ID   string      `json:"incident_id"`
	Name string      `json:"incident_name"`
	Type MentionType `json:"incident_type"`

	// Frequency equals the count of distinct (report_id, mention_index)
	// pairs merged into this incident.
	Frequency int `json:"frequency"`

	Locations     []string          `json:"locations,omitempty"`
	Years         []string          `json:"years,omitempty"`
	LastMentioned time.Time         `json:"last_mentioned"`
	People        []PersonRef       `json:"people_involved,omitempty"`
	SourceReports []SourceReportRef `json:"source_reports"`
}

// Clone returns a deep copy, used by the store's copy-on-write commit path.
func (in *Incident) Clone() *Incident {
	cp := *in
	cp.Locations = slices.Clone(in.Locations)
	cp.Years = slices.Clone(in.Years)
	cp.People = slices.Clone(in.People)
	cp.SourceReports = slices.Clone(in.SourceReports)
	return &cp
}

// Merge folds one additional mention into the incident. Location and year
// sets only grow; last_mentioned moves forward only.
func (in *Incident) Merge(m Mention, person PersonRef) {
	in.Frequency++
	if m.Location != "" && !slices.Contains(in.Locations, m.Location) {
		in.Locations = append(in.Locations, m.Location)
	}
	if m.Year != "" && !slices.Contains(in.Years, m.Year) {
		in.Years = append(in.Years, m.Year)
	}
	if m.UploadedAt.After(in.LastMentioned) {
		in.LastMentioned = m.UploadedAt
	}
	if person.PersonID != "" && !in.Involves(person.PersonID) {
		in.People = append(in.People, person)
	}
	in.SourceReports = append(in.SourceReports, m.Ref())
}

// Involves reports whether the given person already appears on the incident.
func (in *Incident) Involves(personID string) bool {
	for _, p := range in.People {
		if p.PersonID == personID {
			return true
		}
	}
	return false
}
