package model

import (
	"slices"
	"time"
)

// SourceReportRef ties an aggregated entity back to one mention in one
// source report. Refs are append-only and ordered by ingestion.
type SourceReportRef struct {
	ReportID    string      `json:"report_id"`
	Filename    string      `json:"report_filename,omitempty"`
	MentionType MentionType `json:"mention_type"`
	Context     string      `json:"mention_context,omitempty"`
	UploadedAt  time.Time   `json:"uploaded_at"`
	Year        string      `json:"year,omitempty"`
	Location    string      `json:"location,omitempty"`
	Area        string      `json:"area,omitempty"`
}

// Person is a resolved real-world identity aggregated across reports.
// Persons are never deleted; aliases and incident sets only grow.
type Person struct {
	ID            string      `json:"person_id"`
	CanonicalName string      `json:"canonical_name"`
	Aliases       []string    `json:"aliases,omitempty"`
	Involvement   Involvement `json:"involvement_level"`

	// Descriptive fields from report subjects; first non-empty value wins.
	Group  string `json:"group,omitempty"`
	Area   string `json:"area,omitempty"`
	Bounty string `json:"bounty,omitempty"`

	// IncidentIDs is the full set of incidents this person is involved in,
	// in first-seen order. Read views derive "other incidents" relative to
	// a viewing incident from this set.
	IncidentIDs []string `json:"incident_ids,omitempty"`

	// AmbiguousWith lists person IDs that tied above the match threshold
	// when this person was created, flagging the split for manual review.
	AmbiguousWith []string `json:"ambiguous_with,omitempty"`

	SourceReports []SourceReportRef `json:"source_reports"`
}

// Clone returns a deep copy, used by the store's copy-on-write commit path.
func (p *Person) Clone() *Person {
	cp := *p
	cp.Aliases = slices.Clone(p.Aliases)
	cp.IncidentIDs = slices.Clone(p.IncidentIDs)
	cp.AmbiguousWith = slices.Clone(p.AmbiguousWith)
	cp.SourceReports = slices.Clone(p.SourceReports)
	return &cp
}

// AddIncident records involvement in an incident, preserving first-seen
// order and ignoring duplicates.
func (p *Person) AddIncident(incidentID string) {
	if !slices.Contains(p.IncidentIDs, incidentID) {
		p.IncidentIDs = append(p.IncidentIDs, incidentID)
	}
}

// Names returns the canonical name followed by all aliases.
func (p *Person) Names() []string {
	names := make([]string, 0, len(p.Aliases)+1)
	names = append(names, p.CanonicalName)
	names = append(names, p.Aliases...)
	return names
}
