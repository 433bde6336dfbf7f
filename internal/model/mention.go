package model

import "time"

// MentionType classifies what a single mention inside a report describes.
type MentionType string

const (
	MentionCriminalActivity MentionType = "criminal_activity"
	MentionPoliceEncounter  MentionType = "police_encounter"
	MentionQA               MentionType = "qa_mention"
	MentionImportantPoint   MentionType = "important_point"
	MentionMovementRoute    MentionType = "movement_route"
)

// IncidentBearing reports whether mentions of this type describe an event
// that participates in incident clustering. Other types only feed the
// person registry.
func (t MentionType) IncidentBearing() bool {
	return t == MentionCriminalActivity || t == MentionPoliceEncounter
}

// Valid reports whether t is one of the known mention types.
func (t MentionType) Valid() bool {
	switch t {
	case MentionCriminalActivity, MentionPoliceEncounter, MentionQA,
		MentionImportantPoint, MentionMovementRoute:
		return true
	}
	return false
}

// Involvement is the coarse severity of a person's role across reports.
type Involvement string

const (
	InvolvementMentioned Involvement = "mentioned"
	InvolvementSecondary Involvement = "secondary"
	InvolvementPrimary   Involvement = "primary"
)

// rank orders involvement levels by severity. Unknown values rank lowest.
func (i Involvement) rank() int {
	switch i {
	case InvolvementPrimary:
		return 3
	case InvolvementSecondary:
		return 2
	case InvolvementMentioned:
		return 1
	}
	return 0
}

// Escalate returns the more severe of the two levels. A person's stored
// involvement only ever moves upward as reports are merged in.
func (i Involvement) Escalate(other Involvement) Involvement {
	if other.rank() > i.rank() {
		return other
	}
	return i
}

// Mention is one occurrence of a person and, for incident-bearing types,
// one event inside a single report's extraction. Mentions are ephemeral:
// they exist between the adapter and the store commit.
type Mention struct {
	ReportID   string      `json:"report_id"`
	Index      int         `json:"mention_index"`
	Type       MentionType `json:"mention_type"`
	RawName    string      `json:"raw_name"`
	RawAliases []string    `json:"raw_aliases,omitempty"`
	Context    string      `json:"context_text"`
	Year       string      `json:"year,omitempty"`
	Location   string      `json:"location,omitempty"`
	UploadedAt time.Time   `json:"uploaded_at"`

	// Involvement classification supplied by the adapter for this mention.
	Involvement Involvement `json:"involvement"`

	// Report-level descriptive fields carried along for person enrichment
	// and the area rollup.
	Filename string `json:"report_filename,omitempty"`
	Group    string `json:"group,omitempty"`
	Area     string `json:"area,omitempty"`
	Bounty   string `json:"bounty,omitempty"`
}

// Ref builds the provenance reference recorded on every entity this
// mention is merged into.
func (m Mention) Ref() SourceReportRef {
	return SourceReportRef{
		ReportID:    m.ReportID,
		Filename:    m.Filename,
		MentionType: m.Type,
		Context:     m.Context,
		UploadedAt:  m.UploadedAt,
		Year:        m.Year,
		Location:    m.Location,
		Area:        m.Area,
	}
}
