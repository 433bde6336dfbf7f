// Package resolve links raw name mentions to canonical person records.
// Matching runs in two passes over the registry: exact normalized-name
// match, then token-set similarity against every canonical name and
// alias. The passes are deterministic and rule-based; a tie above the
// threshold is never merged silently.
package resolve

import (
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/redcorridor/intel-cli/internal/match"
	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

// ErrNoName marks a mention whose raw name normalizes to nothing (for
// example a bare honorific). Such mentions cannot be resolved and are
// skipped by callers.
var ErrNoName = eris.New("resolve: mention has no usable name")

// Resolver matches mentions against the person registry.
type Resolver struct {
	threshold float64
	log       *zap.Logger
}

// New returns a resolver merging at or above the given similarity
// threshold.
func New(threshold float64) *Resolver {
	return &Resolver{
		threshold: threshold,
		log:       zap.L().With(zap.String("component", "resolve")),
	}
}

// Decision reports how a mention was resolved.
type Decision struct {
	PersonID string
	// Created is true when the mention did not merge into an existing
	// person.
	Created bool
	// Ambiguous is true when more than one existing person cleared the
	// similarity threshold; the new person carries the tied IDs for
	// review.
	Ambiguous bool
	TiedWith  []string
}

// Resolve links one mention to a person, merging into an existing record
// or creating a new one inside the given transaction.
func (r *Resolver) Resolve(tx *store.Tx, m model.Mention) (Decision, error) {
	name := match.NormalizeName(m.RawName)
	if name == "" {
		return Decision{}, eris.Wrapf(ErrNoName, "mention %s#%d", m.ReportID, m.Index)
	}

	variants := []string{name}
	for _, alias := range m.RawAliases {
		if n := match.NormalizeName(alias); n != "" && !slices.Contains(variants, n) {
			variants = append(variants, n)
		}
	}

	// Pass 1: exact normalized match against canonical names and aliases.
	if id, ok := r.exactMatch(tx, variants); ok {
		r.mergeInto(tx, id, m)
		r.log.Debug("resolve: exact match",
			zap.String("name", m.RawName),
			zap.String("person_id", id))
		return Decision{PersonID: id}, nil
	}

	// Pass 2: fuzzy token-set similarity.
	candidates := r.fuzzyCandidates(tx, variants)
	switch len(candidates) {
	case 0:
		id, err := r.createPerson(tx, m, nil)
		if err != nil {
			return Decision{}, err
		}
		return Decision{PersonID: id, Created: true}, nil
	case 1:
		id := candidates[0].id
		r.mergeInto(tx, id, m)
		r.log.Debug("resolve: fuzzy match",
			zap.String("name", m.RawName),
			zap.String("person_id", id),
			zap.Float64("score", candidates[0].score))
		return Decision{PersonID: id}, nil
	default:
		// Several records cleared the threshold. Picking the best scorer
		// would be a silent guess that cannot be unmerged later, so the
		// mention becomes its own person flagged for review.
		tied := make([]string, len(candidates))
		for i, c := range candidates {
			tied[i] = c.id
		}
		slices.Sort(tied)
		id, err := r.createPerson(tx, m, tied)
		if err != nil {
			return Decision{}, err
		}
		r.log.Warn("resolve: ambiguous match, created flagged person",
			zap.String("name", m.RawName),
			zap.Strings("tied_with", tied))
		return Decision{PersonID: id, Created: true, Ambiguous: true, TiedWith: tied}, nil
	}
}

func (r *Resolver) exactMatch(tx *store.Tx, variants []string) (string, bool) {
	for _, p := range tx.Persons() {
		for _, known := range p.Names() {
			if slices.Contains(variants, match.NormalizeName(known)) {
				return p.ID, true
			}
		}
	}
	return "", false
}

type candidate struct {
	id    string
	score float64
}

// fuzzyCandidates returns every person whose best name similarity clears
// the threshold. One element means an unambiguous merge target; more than
// one means the mention is ambiguous regardless of how the scores rank,
// since two plausible targets above the threshold is exactly the case a
// merge must not guess on.
func (r *Resolver) fuzzyCandidates(tx *store.Tx, variants []string) []candidate {
	var out []candidate
	for _, p := range tx.Persons() {
		known := make([]string, 0, len(p.Aliases)+1)
		for _, n := range p.Names() {
			known = append(known, match.NormalizeName(n))
		}

		var score float64
		for _, v := range variants {
			if s := match.BestAgainst(v, known); s > score {
				score = s
			}
		}
		if score >= r.threshold {
			out = append(out, candidate{id: p.ID, score: score})
		}
	}
	return out
}

// mergeInto folds a mention into an existing person: aliases grow,
// involvement escalates, descriptive fields keep their first non-empty
// value, and the source ref is appended.
func (r *Resolver) mergeInto(tx *store.Tx, personID string, m model.Mention) {
	p, ok := tx.MutablePerson(personID)
	if !ok {
		return
	}

	canonical := match.NormalizeName(p.CanonicalName)
	for _, raw := range append([]string{m.RawName}, m.RawAliases...) {
		if raw == "" || match.NormalizeName(raw) == canonical {
			continue
		}
		if !knowsName(p, raw) {
			p.Aliases = append(p.Aliases, raw)
		}
	}

	p.Involvement = p.Involvement.Escalate(m.Involvement)
	if p.Group == "" {
		p.Group = m.Group
	}
	if p.Area == "" {
		p.Area = m.Area
	}
	if p.Bounty == "" {
		p.Bounty = m.Bounty
	}
	p.SourceReports = append(p.SourceReports, m.Ref())
}

func knowsName(p *model.Person, raw string) bool {
	n := match.NormalizeName(raw)
	for _, known := range p.Names() {
		if match.NormalizeName(known) == n {
			return true
		}
	}
	return false
}

func (r *Resolver) createPerson(tx *store.Tx, m model.Mention, ambiguousWith []string) (string, error) {
	p := &model.Person{
		ID:            store.PersonID(m.ReportID, m.Index),
		CanonicalName: m.RawName,
		Aliases:       slices.Clone(m.RawAliases),
		Involvement:   m.Involvement,
		Group:         m.Group,
		Area:          m.Area,
		Bounty:        m.Bounty,
		AmbiguousWith: ambiguousWith,
		SourceReports: []model.SourceReportRef{m.Ref()},
	}
	if err := tx.CreatePerson(p); err != nil {
		return "", err
	}
	return p.ID, nil
}
