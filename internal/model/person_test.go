package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersonClone_Independent(t *testing.T) {
	p := &Person{
		ID:            "p1",
		CanonicalName: "Ramesh Yadav",
		Aliases:       []string{"Ramu"},
		IncidentIDs:   []string{"i1"},
		SourceReports: []SourceReportRef{{ReportID: "r1"}},
	}

	cp := p.Clone()
	cp.Aliases = append(cp.Aliases, "Dada")
	cp.IncidentIDs[0] = "i2"
	cp.SourceReports[0].ReportID = "r2"

	assert.Equal(t, []string{"Ramu"}, p.Aliases)
	assert.Equal(t, []string{"i1"}, p.IncidentIDs)
	assert.Equal(t, "r1", p.SourceReports[0].ReportID)
}

func TestPersonAddIncident_Dedup(t *testing.T) {
	p := &Person{}
	p.AddIncident("i1")
	p.AddIncident("i2")
	p.AddIncident("i1")

	assert.Equal(t, []string{"i1", "i2"}, p.IncidentIDs)
}

func TestPersonNames(t *testing.T) {
	p := &Person{CanonicalName: "Ramesh Yadav", Aliases: []string{"Ramu", "Dada"}}
	assert.Equal(t, []string{"Ramesh Yadav", "Ramu", "Dada"}, p.Names())
}
