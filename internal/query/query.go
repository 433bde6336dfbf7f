// Package query provides read-only views over a store snapshot. Views
// are computed once per snapshot version and cached; any commit bumps
// the version, which invalidates the cache on the next read.
package query

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

// Service answers read queries against the latest published snapshot.
// Safe for concurrent use.
type Service struct {
	store *store.Store

	mu    sync.Mutex
	views *views
}

type views struct {
	version int64
	people  []PersonSummary
	byType  map[model.MentionType][]*model.Incident
	rollup  []AreaRollup
}

// PersonSummary pairs a person with their derived incident count.
type PersonSummary struct {
	Person        *model.Person `json:"person"`
	IncidentCount int           `json:"incident_count"`
}

// AreaRollup aggregates registry contents by area committee.
type AreaRollup struct {
	Area          string   `json:"area_committee"`
	PersonCount   int      `json:"person_count"`
	IncidentCount int      `json:"incident_count"`
	Years         []string `json:"years"`
}

// New returns a query service over the given store.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// PeopleByIncidentCount lists every person, most incidents first. Ties
// break by canonical name ascending so output is stable.
func (s *Service) PeopleByIncidentCount() []PersonSummary {
	return s.current().people
}

// IncidentsByType lists incidents of one type ordered by frequency
// descending, then most recently mentioned, then name ascending.
func (s *Service) IncidentsByType(typ model.MentionType) []*model.Incident {
	return s.current().byType[typ]
}

// AreaCommitteeRollup aggregates persons, incidents, and active years by
// area committee, ordered by area name.
func (s *Service) AreaCommitteeRollup() []AreaRollup {
	return s.current().rollup
}

// OtherIncidents returns the person's incident IDs excluding the one
// being viewed, preserving first-seen order.
func OtherIncidents(p *model.Person, viewingIncidentID string) []string {
	var out []string
	for _, id := range p.IncidentIDs {
		if id != viewingIncidentID {
			out = append(out, id)
		}
	}
	return out
}

// current returns the views for the latest snapshot, rebuilding them if
// a commit has happened since they were computed.
func (s *Service) current() *views {
	snap := s.store.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.views != nil && s.views.version == snap.Version() {
		return s.views
	}

	s.views = build(snap)
	zap.L().Debug("query: views rebuilt",
		zap.Int64("version", snap.Version()),
		zap.Int("persons", snap.PersonCount()),
		zap.Int("incidents", snap.IncidentCount()))
	return s.views
}

func build(snap *store.Snapshot) *views {
	v := &views{
		version: snap.Version(),
		byType:  map[model.MentionType][]*model.Incident{},
	}

	for _, p := range snap.Persons() {
		v.people = append(v.people, PersonSummary{Person: p, IncidentCount: len(p.IncidentIDs)})
	}
	slices.SortStableFunc(v.people, func(a, b PersonSummary) int {
		if a.IncidentCount != b.IncidentCount {
			return b.IncidentCount - a.IncidentCount
		}
		return strings.Compare(a.Person.CanonicalName, b.Person.CanonicalName)
	})

	for _, in := range snap.Incidents() {
		v.byType[in.Type] = append(v.byType[in.Type], in)
	}
	for _, incidents := range v.byType {
		slices.SortStableFunc(incidents, func(a, b *model.Incident) int {
			if a.Frequency != b.Frequency {
				return b.Frequency - a.Frequency
			}
			if !a.LastMentioned.Equal(b.LastMentioned) {
				return b.LastMentioned.Compare(a.LastMentioned)
			}
			return strings.Compare(a.Name, b.Name)
		})
	}

	v.rollup = buildRollup(snap)
	return v
}

// buildRollup groups the registry by area committee. A person belongs to
// their descriptive area, falling back to the first source ref carrying
// one; incidents contribute through each distinct area in their
// provenance. Entities with no area information land in "Unassigned".
func buildRollup(snap *store.Snapshot) []AreaRollup {
	type bucket struct {
		persons   int
		incidents int
		years     map[string]bool
	}
	buckets := map[string]*bucket{}
	get := func(area string) *bucket {
		if area == "" {
			area = "Unassigned"
		}
		b, ok := buckets[area]
		if !ok {
			b = &bucket{years: map[string]bool{}}
			buckets[area] = b
		}
		return b
	}

	for _, p := range snap.Persons() {
		get(personArea(p)).persons++
	}
	for _, in := range snap.Incidents() {
		seen := map[string]bool{}
		for _, ref := range in.SourceReports {
			area := ref.Area
			if area == "" {
				area = ref.Location
			}
			if seen[area] {
				continue
			}
			seen[area] = true
			b := get(area)
			b.incidents++
			for _, year := range in.Years {
				b.years[year] = true
			}
		}
		if len(in.SourceReports) == 0 {
			get("").incidents++
		}
	}

	areas := make([]string, 0, len(buckets))
	for area := range buckets {
		areas = append(areas, area)
	}
	slices.Sort(areas)

	out := make([]AreaRollup, 0, len(areas))
	for _, area := range areas {
		b := buckets[area]
		years := make([]string, 0, len(b.years))
		for year := range b.years {
			years = append(years, year)
		}
		slices.Sort(years)
		out = append(out, AreaRollup{
			Area:          area,
			PersonCount:   b.persons,
			IncidentCount: b.incidents,
			Years:         years,
		})
	}
	return out
}

func personArea(p *model.Person) string {
	if p.Area != "" {
		return p.Area
	}
	for _, ref := range p.SourceReports {
		if ref.Area != "" {
			return ref.Area
		}
	}
	return ""
}
