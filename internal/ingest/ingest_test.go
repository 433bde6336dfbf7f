package ingest

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcorridor/intel-cli/internal/adapter"
	"github.com/redcorridor/intel-cli/internal/archive"
	"github.com/redcorridor/intel-cli/internal/cluster"
	"github.com/redcorridor/intel-cli/internal/match"
	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/resolve"
	"github.com/redcorridor/intel-cli/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store) {
	t.Helper()
	s := store.New()
	a, err := archive.NewSQLite(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() }) //nolint:errcheck
	require.NoError(t, a.Migrate(context.Background()))
	return New(s, resolve.New(0.85), cluster.New(0.80), a), s
}

func record(t *testing.T, reportID, name string, payload map[string]any) *model.ExtractionRecord {
	t.Helper()
	if payload == nil {
		payload = map[string]any{}
	}
	payload["Name"] = name
	rec, err := adapter.ParseRecord(reportID, reportID+".pdf",
		time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), payload)
	require.NoError(t, err)
	return rec
}

func activityPayload(incident, year, location string) map[string]any {
	return map[string]any{
		"Criminal Activities": []any{
			map[string]any{"Incident": incident, "Year": year, "Location": location},
		},
	}
}

func TestIngestRecord_CreatesPersonAndIncident(t *testing.T) {
	p, s := newTestPipeline(t)

	res, err := p.IngestRecord(context.Background(),
		record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman")))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Mentions)
	assert.Equal(t, 1, res.PersonsCreated)
	assert.Equal(t, 1, res.IncidentsCreated)
	assert.Zero(t, res.Duplicates)

	snap := s.Snapshot()
	require.Equal(t, 1, snap.PersonCount())
	require.Equal(t, 1, snap.IncidentCount())

	person := snap.Persons()[0]
	incident := snap.Incidents()[0]
	assert.Equal(t, []string{incident.ID}, person.IncidentIDs)
	assert.True(t, incident.Involves(person.ID))
}

func TestIngestRecord_CrossReportMerge(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestRecord(ctx, record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman")))
	require.NoError(t, err)

	res, err := p.IngestRecord(ctx, record(t, "r2", "Shri Ramesh Yadav", activityPayload("Market robbery incident", "2019", "Daman")))
	require.NoError(t, err)

	assert.Zero(t, res.PersonsCreated)
	assert.Zero(t, res.IncidentsCreated)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.PersonCount())
	assert.Equal(t, 1, snap.IncidentCount())
	assert.Equal(t, 2, snap.Incidents()[0].Frequency)
	assert.Len(t, snap.Persons()[0].SourceReports, 2)
}

func TestIngestRecord_ReingestionIsNoop(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	rec := record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman"))
	_, err := p.IngestRecord(ctx, rec)
	require.NoError(t, err)
	v1 := s.Snapshot().Version()

	res, err := p.IngestRecord(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Zero(t, res.PersonsCreated)

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.PersonCount())
	assert.Equal(t, 1, snap.Incidents()[0].Frequency)
	// The no-op commit still advances the version.
	assert.Equal(t, v1+1, snap.Version())
}

func TestIngestRecord_QAMentionsLinkPersonsOnly(t *testing.T) {
	p, s := newTestPipeline(t)

	payload := activityPayload("Market robbery", "2019", "Daman")
	payload["All Maoists Met"] = []any{
		map[string]any{"Name": "Sunita Devi", "Group": "Company 2"},
	}
	res, err := p.IngestRecord(context.Background(), record(t, "r1", "Ramesh Yadav", payload))
	require.NoError(t, err)

	assert.Equal(t, 2, res.PersonsCreated)
	assert.Equal(t, 1, res.IncidentsCreated)

	snap := s.Snapshot()
	require.Equal(t, 2, snap.PersonCount())
	for _, person := range snap.Persons() {
		if person.CanonicalName == "Sunita Devi" {
			assert.Equal(t, model.InvolvementSecondary, person.Involvement)
			assert.Empty(t, person.IncidentIDs)
		}
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestRecord(ctx, record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman")))
	require.NoError(t, err)

	fresh := store.New()
	p2 := New(fresh, resolve.New(0.85), cluster.New(0.80), p.archive)
	ok, err := p2.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, s.Snapshot().Version(), fresh.Snapshot().Version())
	assert.Equal(t, s.Snapshot().PersonCount(), fresh.Snapshot().PersonCount())
	assert.Equal(t, s.Snapshot().Persons()[0].ID, fresh.Snapshot().Persons()[0].ID)
}

func TestRestore_EmptyArchive(t *testing.T) {
	p, _ := newTestPipeline(t)
	ok, err := p.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRebuild_ReproducesIDs(t *testing.T) {
	p, s := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestRecord(ctx, record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman")))
	require.NoError(t, err)
	_, err = p.IngestRecord(ctx, record(t, "r2", "Ramesh Yadev", activityPayload("Market robbery", "2019", "Daman")))
	require.NoError(t, err)
	_, err = p.IngestRecord(ctx, record(t, "r3", "Sunita Devi", activityPayload("Bridge demolition", "2021", "Pune")))
	require.NoError(t, err)

	fresh := store.New()
	p2 := New(fresh, resolve.New(0.85), cluster.New(0.80), p.archive)
	n, err := p2.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := s.Snapshot()
	got := fresh.Snapshot()
	require.Equal(t, want.PersonCount(), got.PersonCount())
	require.Equal(t, want.IncidentCount(), got.IncidentCount())
	for i, p := range want.Persons() {
		assert.Equal(t, p.ID, got.Persons()[i].ID)
		assert.Equal(t, p.CanonicalName, got.Persons()[i].CanonicalName)
	}
	for i, in := range want.Incidents() {
		assert.Equal(t, in.ID, got.Incidents()[i].ID)
		assert.Equal(t, in.Frequency, got.Incidents()[i].Frequency)
	}
}

func TestIngest_ArrivalOrderIndependentGrouping(t *testing.T) {
	ctx := context.Background()

	// Two reports about the same person and incident (one behind an
	// honorific and a longer phrasing), one unrelated report.
	records := func() []*model.ExtractionRecord {
		return []*model.ExtractionRecord{
			record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman")),
			record(t, "r2", "Shri Ramesh Yadav", activityPayload("Market robbery incident", "2019", "Daman")),
			record(t, "r3", "Sunita Devi", activityPayload("Bridge demolition", "2021", "Pune")),
		}
	}

	p1, s1 := newTestPipeline(t)
	for _, rec := range records() {
		_, err := p1.IngestRecord(ctx, rec)
		require.NoError(t, err)
	}

	p2, s2 := newTestPipeline(t)
	recs := records()
	for i := len(recs) - 1; i >= 0; i-- {
		_, err := p2.IngestRecord(ctx, recs[i])
		require.NoError(t, err)
	}

	// IDs depend on which report created an entity, but the grouping
	// must not: same person set, same incident counts per person.
	assert.Equal(t, personGrouping(s1), personGrouping(s2))
	assert.Equal(t, incidentFrequencies(s1), incidentFrequencies(s2))
}

// personGrouping maps each person's normalized canonical name to their
// incident count, which identifies the final clustering without IDs.
func personGrouping(s *store.Store) map[string]int {
	out := map[string]int{}
	for _, p := range s.Snapshot().Persons() {
		out[match.NormalizeName(p.CanonicalName)] = len(p.IncidentIDs)
	}
	return out
}

func incidentFrequencies(s *store.Store) []int {
	var out []int
	for _, in := range s.Snapshot().Incidents() {
		out = append(out, in.Frequency)
	}
	slices.Sort(out)
	return out
}

func TestRebuild_RefusesNonEmptyStore(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.IngestRecord(ctx, record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman")))
	require.NoError(t, err)

	_, err = p.Rebuild(ctx)
	assert.Error(t, err)
}

func TestWorker_ProcessesQueue(t *testing.T) {
	p, s := newTestPipeline(t)
	w := NewWorker(p, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, w.Enqueue(record(t, "r1", "Ramesh Yadav", activityPayload("Market robbery", "2019", "Daman"))))

	require.Eventually(t, func() bool {
		return s.Snapshot().PersonCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorker_EnqueueFull(t *testing.T) {
	p, _ := newTestPipeline(t)
	w := NewWorker(p, 1)

	require.NoError(t, w.Enqueue(record(t, "r1", "Ramesh Yadav", nil)))
	err := w.Enqueue(record(t, "r2", "Sunita Devi", nil))
	assert.ErrorIs(t, err, ErrQueueFull)
}
