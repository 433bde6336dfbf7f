package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcorridor/intel-cli/internal/model"
	"github.com/redcorridor/intel-cli/internal/store"
)

func newTestSQLiteArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	a, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() }) //nolint:errcheck
	require.NoError(t, a.Migrate(context.Background()))
	return a
}

func testRecord(reportID string) *model.ExtractionRecord {
	return &model.ExtractionRecord{
		ReportID:   reportID,
		Filename:   reportID + ".pdf",
		UploadedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Name:       "Ramesh Yadav",
		Activities: []model.ActivityEntry{{Incident: "Market robbery", Year: "2019"}},
	}
}

func TestSQLite_SaveAndListReports(t *testing.T) {
	a := newTestSQLiteArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveReport(ctx, testRecord("r1")))
	require.NoError(t, a.SaveReport(ctx, testRecord("r2")))

	reports, err := a.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r1", reports[0].ReportID)
	assert.Equal(t, "r2", reports[1].ReportID)
	assert.Equal(t, "Ramesh Yadav", reports[0].Name)
	require.Len(t, reports[0].Activities, 1)
	assert.Equal(t, "Market robbery", reports[0].Activities[0].Incident)
}

func TestSQLite_SaveReport_DuplicateIsNoop(t *testing.T) {
	a := newTestSQLiteArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveReport(ctx, testRecord("r1")))

	dup := testRecord("r1")
	dup.Name = "Someone Else"
	require.NoError(t, a.SaveReport(ctx, dup))

	reports, err := a.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	// First write wins.
	assert.Equal(t, "Ramesh Yadav", reports[0].Name)
}

func TestSQLite_ListReports_Empty(t *testing.T) {
	a := newTestSQLiteArchive(t)

	reports, err := a.ListReports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSQLite_StateRoundTrip(t *testing.T) {
	a := newTestSQLiteArchive(t)
	ctx := context.Background()

	st, err := a.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	saved := &store.State{
		Version:   3,
		Persons:   []*model.Person{{ID: "p1", CanonicalName: "Ramesh Yadav"}},
		Incidents: []*model.Incident{{ID: "i1", Name: "Market robbery"}},
		Processed: map[string][]int{"r1": {0, 1}},
	}
	require.NoError(t, a.SaveState(ctx, saved))

	loaded, err := a.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(3), loaded.Version)
	require.Len(t, loaded.Persons, 1)
	assert.Equal(t, "Ramesh Yadav", loaded.Persons[0].CanonicalName)
	assert.Equal(t, []int{0, 1}, loaded.Processed["r1"])
}

func TestSQLite_SaveState_Replaces(t *testing.T) {
	a := newTestSQLiteArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveState(ctx, &store.State{Version: 1}))
	require.NoError(t, a.SaveState(ctx, &store.State{Version: 2}))

	loaded, err := a.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Version)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), "oracle", "dsn")
	assert.Error(t, err)
}
