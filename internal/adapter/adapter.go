// Package adapter converts raw per-report extraction payloads into the
// canonical ExtractionRecord form and derives typed mentions from them.
// Extraction services disagree on key naming ("Criminal Activities",
// "criminal_activities", ...), so every accepted variant lives in one
// embedded mapping table.
package adapter

import (
	_ "embed"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/redcorridor/intel-cli/internal/model"
)

// ErrMalformedExtraction marks a payload that carries neither a subject
// name nor any incident-bearing fields. Callers skip and log these, they
// never abort a batch.
var ErrMalformedExtraction = eris.New("adapter: malformed extraction payload")

//go:embed keys.yaml
var keysYAML []byte

type keyTable struct {
	Fields  map[string][]string            `yaml:"fields"`
	Entries map[string]map[string][]string `yaml:"entries"`
}

// fieldKeys maps a lowercased raw key to its canonical field name.
// entryKeys does the same per nested row kind; scoping matters because
// raw keys like "year" and "details" mean different things in different
// tables. Both are built once from the embedded table.
var (
	fieldKeys map[string]string
	entryKeys map[string]map[string]string
)

func init() {
	var table keyTable
	if err := yaml.Unmarshal(keysYAML, &table); err != nil {
		panic(eris.Wrap(err, "adapter: parse embedded key table"))
	}
	fieldKeys = invert(table.Fields)
	entryKeys = make(map[string]map[string]string, len(table.Entries))
	for kind, fields := range table.Entries {
		entryKeys[kind] = invert(fields)
	}
}

func invert(m map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, variants := range m {
		for _, v := range variants {
			out[strings.ToLower(v)] = canonical
		}
	}
	return out
}

// ParseRecord normalizes one raw extraction payload into an
// ExtractionRecord. Returns ErrMalformedExtraction when the payload has
// neither a subject name nor incident-bearing content.
func ParseRecord(reportID, filename string, uploadedAt time.Time, raw map[string]any) (*model.ExtractionRecord, error) {
	fields := canonicalize(raw, fieldKeys)

	rec := &model.ExtractionRecord{
		ReportID:   reportID,
		Filename:   filename,
		UploadedAt: uploadedAt,

		Group:       cleanString(fields["group"]),
		Area:        cleanString(fields["area"]),
		Involvement: cleanString(fields["involvement"]),
		Bounty:      cleanString(fields["bounty"]),

		Villages:        villageList(fields["villages"]),
		ImportantPoints: stringList(fields["important_points"]),
		Weapons:         stringList(fields["weapons"]),
	}

	rec.Name, rec.Aliases = splitURF(cleanString(fields["name"]))
	rec.Aliases = append(rec.Aliases, stringList(fields["aliases"])...)

	rec.Activities = activityList(fields["activities"])
	rec.Encounters = encounterList(fields["encounters"])
	rec.PersonsMet = personMetList(fields["persons_met"])
	rec.RoleChanges = roleChangeList(fields["role_changes"])

	if rec.Empty() {
		return nil, eris.Wrapf(ErrMalformedExtraction, "report %s", reportID)
	}
	return rec, nil
}

// canonicalize folds a raw map's keys through the variant table. Unknown
// keys are dropped; on a collision the first value wins so repeated
// variants of the same field cannot clobber each other.
func canonicalize(raw map[string]any, keys map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		canonical, ok := keys[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}
	return out
}

// unknowns are the placeholder values the extraction service emits for
// absent fields, in English and Hindi.
var unknowns = map[string]bool{
	"unknown": true,
	"n/a":     true,
	"none":    true,
	"अज्ञात":  true,
}

func cleanString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if unknowns[strings.ToLower(s)] {
		return ""
	}
	return s
}

// splitURF separates "Suraj urf Don" style names into the main name and
// an alias. Reports written in Hindi use "urf" (उर्फ) where English text
// would use "alias".
func splitURF(name string) (string, []string) {
	for _, marker := range []string{" urf ", " उर्फ ", " alias ", " @ "} {
		if i := strings.Index(strings.ToLower(name), marker); i >= 0 {
			main := strings.TrimSpace(name[:i])
			alias := strings.TrimSpace(name[i+len(marker):])
			if main != "" && alias != "" {
				return main, []string{alias}
			}
		}
	}
	return name, nil
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s := cleanString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// villageList accepts both plain strings and {village, district} objects.
func villageList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := cleanString(t); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			entry := canonicalize(t, entryKeys["village"])
			village := cleanString(entry["village"])
			if village == "" {
				continue
			}
			if district := cleanString(entry["district"]); district != "" {
				village += " (" + district + ")"
			}
			out = append(out, village)
		}
	}
	return out
}

// activityList accepts both structured {incident, year, location} rows
// and bare description strings.
func activityList(v any) []model.ActivityEntry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []model.ActivityEntry
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := cleanString(t); s != "" {
				out = append(out, model.ActivityEntry{Incident: s})
			}
		case map[string]any:
			entry := canonicalize(t, entryKeys["activity"])
			a := model.ActivityEntry{
				Incident: cleanString(entry["incident"]),
				Year:     cleanString(entry["year"]),
				Location: cleanString(entry["location"]),
			}
			if a.Incident != "" {
				out = append(out, a)
			}
		}
	}
	return out
}

func encounterList(v any) []model.EncounterEntry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []model.EncounterEntry
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := cleanString(t); s != "" {
				out = append(out, model.EncounterEntry{Details: s})
			}
		case map[string]any:
			entry := canonicalize(t, entryKeys["encounter"])
			e := model.EncounterEntry{
				Year:    cleanString(entry["year"]),
				Details: cleanString(entry["details"]),
			}
			if e.Details != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

func personMetList(v any) []model.PersonMetEntry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []model.PersonMetEntry
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := canonicalize(m, entryKeys["person_met"])
		p := model.PersonMetEntry{
			Name:    cleanString(entry["name"]),
			Group:   cleanString(entry["group"]),
			YearMet: cleanString(entry["year_met"]),
			Rank:    cleanString(entry["rank"]),
		}
		if p.Name != "" {
			out = append(out, p)
		}
	}
	return out
}

func roleChangeList(v any) []model.RoleChangeEntry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []model.RoleChangeEntry
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if s := cleanString(t); s != "" {
				out = append(out, model.RoleChangeEntry{Role: s})
			}
		case map[string]any:
			entry := canonicalize(t, entryKeys["role_change"])
			rc := model.RoleChangeEntry{
				Year: cleanString(entry["year"]),
				Role: cleanString(entry["role"]),
			}
			if rc.Role != "" {
				out = append(out, rc)
			}
		}
	}
	return out
}
