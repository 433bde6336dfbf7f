// Package cluster groups incident-bearing mentions into deduplicated
// incident records. Two mentions describe the same incident only when
// their types agree, their context text is similar enough, and they
// share at least one hard signal: a location, a year, or a resolved
// person.
package cluster

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/redcorridor/intel-cli/internal/match"
	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

// Clusterer assigns mentions to incidents.
type Clusterer struct {
	threshold float64
	log       *zap.Logger
}

// New returns a clusterer merging at or above the given text similarity
// threshold.
func New(threshold float64) *Clusterer {
	return &Clusterer{
		threshold: threshold,
		log:       zap.L().With(zap.String("component", "cluster")),
	}
}

// Decision reports how a mention was clustered.
type Decision struct {
	IncidentID string
	Created    bool
	// Ambiguous is true when two existing incidents tied at the best
	// similarity; the mention became its own incident instead of
	// guessing.
	Ambiguous bool
}

// Cluster assigns one incident-bearing mention, already resolved to a
// person, to an incident inside the given transaction. The person's
// incident set is updated either way.
func (c *Clusterer) Cluster(tx *store.Tx, m model.Mention, person model.PersonRef) (Decision, error) {
	if !m.Type.IncidentBearing() {
		return Decision{}, eris.Errorf("cluster: mention %s#%d type %s is not incident-bearing", m.ReportID, m.Index, m.Type)
	}

	text := match.NormalizeText(m.Context)
	best, tie := c.bestCandidate(tx, m, person, text)

	switch {
	case best == "" || tie:
		id, err := c.createIncident(tx, m, person)
		if err != nil {
			return Decision{}, err
		}
		if tie {
			c.log.Warn("cluster: ambiguous incident match, created new incident",
				zap.String("report_id", m.ReportID),
				zap.Int("mention_index", m.Index))
		}
		c.linkPerson(tx, person.PersonID, id)
		return Decision{IncidentID: id, Created: true, Ambiguous: tie}, nil
	default:
		in, ok := tx.MutableIncident(best)
		if !ok {
			return Decision{}, eris.Wrapf(store.ErrCorrupted, "cluster: candidate incident %s vanished", best)
		}
		in.Merge(m, person)
		c.linkPerson(tx, person.PersonID, best)
		c.log.Debug("cluster: merged mention",
			zap.String("incident_id", best),
			zap.String("report_id", m.ReportID))
		return Decision{IncidentID: best}, nil
	}
}

// bestCandidate scans existing incidents for merge targets. It returns
// the single best incident ID, or tie=true when two incidents scored
// identically at the top.
func (c *Clusterer) bestCandidate(tx *store.Tx, m model.Mention, person model.PersonRef, text string) (string, bool) {
	var (
		bestID    string
		bestScore float64
		tie       bool
	)
	for _, in := range tx.Incidents() {
		if in.Type != m.Type {
			continue
		}
		if !c.sharesSignal(in, m, person) {
			continue
		}
		score := match.Similarity(text, match.NormalizeText(in.Name))
		if score < c.threshold {
			continue
		}
		switch {
		case score > bestScore:
			bestID, bestScore, tie = in.ID, score, false
		case score == bestScore:
			tie = true
		}
	}
	return bestID, tie
}

// sharesSignal checks the hard-overlap requirement: text similarity
// alone never merges two incidents.
func (c *Clusterer) sharesSignal(in *model.Incident, m model.Mention, person model.PersonRef) bool {
	if m.Location != "" {
		for _, loc := range in.Locations {
			if match.NormalizeText(loc) == match.NormalizeText(m.Location) {
				return true
			}
		}
	}
	if m.Year != "" {
		for _, year := range in.Years {
			if year == m.Year {
				return true
			}
		}
	}
	return in.Involves(person.PersonID)
}

func (c *Clusterer) createIncident(tx *store.Tx, m model.Mention, person model.PersonRef) (string, error) {
	in := &model.Incident{
		ID:            store.IncidentID(m.ReportID, m.Index),
		Name:          m.Context,
		Type:          m.Type,
		Frequency:     1,
		LastMentioned: m.UploadedAt,
		People:        []model.PersonRef{person},
		SourceReports: []model.SourceReportRef{m.Ref()},
	}
	if m.Location != "" {
		in.Locations = []string{m.Location}
	}
	if m.Year != "" {
		in.Years = []string{m.Year}
	}
	if err := tx.CreateIncident(in); err != nil {
		return "", err
	}
	return in.ID, nil
}

func (c *Clusterer) linkPerson(tx *store.Tx, personID, incidentID string) {
	if p, ok := tx.MutablePerson(personID); ok {
		p.AddIncident(incidentID)
	}
}
