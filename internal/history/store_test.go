package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steerfolio/steerfolio/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestSaveInsertsRecord(t *testing.T) {
	store, mock := newMockStore(t)

	rec := Record{
		ID:            "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed",
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		DecisionScore: 74.2,
		Confidence:    0.8,
		Regime:        "euphoria",
		Strategy:      "blend (cycle on ccs baseline)",
		TargetsJSON:   []byte(`{"BTC":40,"Stablecoins":33}`),
		Valid:         true,
	}

	mock.ExpectExec(`INSERT INTO decision_history`).
		WithArgs(rec.ID, rec.CreatedAt, rec.DecisionScore, rec.Confidence,
			rec.Regime, rec.Strategy, rec.TargetsJSON, rec.Valid, rec.BlockedReasons).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentLoadsNewestFirst(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "created_at", "decision_score", "confidence", "regime", "strategy", "targets", "valid", "blocked_reasons"}).
		AddRow("b", time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), 60.0, 0.7, "expansion", "blend (diluted macro)", []byte(`{}`), true, "").
		AddRow("a", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 55.0, 0.6, "expansion", "macro", []byte(`{}`), false, "threshold")

	mock.ExpectQuery(`SELECT .+ FROM decision_history ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(rows)

	recs, err := store.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.False(t, recs[1].Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTargetsRoundTrip(t *testing.T) {
	rec := Record{ID: "x", TargetsJSON: []byte(`{"BTC":50,"ETH":17,"Stablecoins":33}`)}

	targets, err := rec.Targets()
	require.NoError(t, err)
	assert.Equal(t, 50.0, targets[domain.GroupBTC])
	assert.Equal(t, 33.0, targets[domain.GroupStablecoins])
	assert.Zero(t, targets[domain.GroupMemecoins])

	_, err = Record{ID: "y", TargetsJSON: []byte(`{"Sharecoins":1}`)}.Targets()
	assert.Error(t, err)
}
