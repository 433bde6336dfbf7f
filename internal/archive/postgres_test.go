package archive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redcorridor/intel-cli/internal/store"
)

func newMockArchive(t *testing.T) (*PostgresArchive, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_SaveReport(t *testing.T) {
	a, mock := newMockArchive(t)

	rec := testRecord("r1")
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO reports").
		WithArgs("r1", "r1.pdf", rec.UploadedAt.UTC(), payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, a.SaveReport(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListReports(t *testing.T) {
	a, mock := newMockArchive(t)

	r1, err := json.Marshal(testRecord("r1"))
	require.NoError(t, err)
	r2, err := json.Marshal(testRecord("r2"))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM reports ORDER BY seq ASC").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(r1).AddRow(r2))

	reports, err := a.ListReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "r1", reports[0].ReportID)
	assert.Equal(t, "r2", reports[1].ReportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadState_Empty(t *testing.T) {
	a, mock := newMockArchive(t)

	mock.ExpectQuery("SELECT state FROM registry_state").
		WillReturnError(pgx.ErrNoRows)

	st, err := a.LoadState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StateRoundTrip(t *testing.T) {
	a, mock := newMockArchive(t)

	st := &store.State{Version: 7, Processed: map[string][]int{"r1": {0}}}
	payload, err := json.Marshal(st)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO registry_state").
		WithArgs(st.Version, payload, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, a.SaveState(context.Background(), st))

	mock.ExpectQuery("SELECT state FROM registry_state").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(payload))

	loaded, err := a.LoadState(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(7), loaded.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	a, mock := newMockArchive(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reports").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, a.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
