package model

import "time"

// ActivityEntry is one criminal activity row from a report's extraction.
type ActivityEntry struct {
	Incident string `json:"incident"`
	Year     string `json:"year,omitempty"`
	Location string `json:"location,omitempty"`
}

// EncounterEntry is one police encounter row.
type EncounterEntry struct {
	Year    string `json:"year,omitempty"`
	Details string `json:"encounter_details"`
}

// PersonMetEntry is one row of the report's named-contacts table.
type PersonMetEntry struct {
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"`
	YearMet string `json:"year_met,omitempty"`
	Rank    string `json:"rank,omitempty"`
}

// RoleChangeEntry tracks one hierarchical role change of the subject.
type RoleChangeEntry struct {
	Year string `json:"year,omitempty"`
	Role string `json:"role"`
}

// ExtractionRecord is the canonical form of one report's structured
// extraction payload after the adapter has resolved key-naming variants.
type ExtractionRecord struct {
	ReportID   string    `json:"report_id"`
	Filename   string    `json:"report_filename,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`

	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Group       string   `json:"group,omitempty"`
	Area        string   `json:"area,omitempty"`
	Involvement string   `json:"involvement,omitempty"`
	Bounty      string   `json:"bounty,omitempty"`

	Villages        []string         `json:"villages_covered,omitempty"`
	ImportantPoints []string         `json:"important_points,omitempty"`
	Activities      []ActivityEntry  `json:"criminal_activities,omitempty"`
	Encounters      []EncounterEntry `json:"police_encounters,omitempty"`
	PersonsMet      []PersonMetEntry `json:"persons_met,omitempty"`
	RoleChanges     []RoleChangeEntry `json:"role_changes,omitempty"`
	Weapons         []string         `json:"weapons_assets,omitempty"`
}

// Empty reports whether the record carries neither a subject name nor any
// incident-bearing fields, i.e. ingestion would be a no-op.
func (r *ExtractionRecord) Empty() bool {
	return r.Name == "" && len(r.Activities) == 0 && len(r.Encounters) == 0
}
