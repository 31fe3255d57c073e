package journal

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var positionCols = []string{
	"id", "trade_id", "exchange", "market_type", "symbol", "side", "status",
	"avg_entry_price", "qty", "leverage", "realized_pnl_usd", "unrealized_pnl_usd",
	"orders", "risk_state", "failure_reason", "opened_at", "updated_at", "closed_at",
}

func newMockJournal(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS positions").WillReturnResult(sqlmock.NewResult(0, 0))
	j, err := New(db)
	require.NoError(t, err)
	return j, mock
}

func TestNewSchemaError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))

	_, err = New(db)
	assert.ErrorContains(t, err, "apply journal schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePositionExecError(t *testing.T) {
	t.Parallel()

	j, mock := newMockJournal(t)
	mock.ExpectExec("INSERT INTO positions").
		WithArgs("P1", "T-P1", "binance", "spot", "BTCUSDT", "buy", "open",
			"100", "1", "1", "0", "0",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "", t0, t0, nil).
		WillReturnError(errors.New("disk full"))

	err := j.SavePosition(context.Background(), samplePosition("P1"))
	assert.ErrorContains(t, err, "save position P1")
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDecisionArgs(t *testing.T) {
	t.Parallel()

	j, mock := newMockJournal(t)
	mock.ExpectExec("INSERT INTO decisions").
		WithArgs("D1", t0, "BTCUSDT", "buy", true, "ok", "LOW", "null", nil, "400", "20").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := j.RecordDecision(context.Background(), DecisionRecord{
		ID: "D1", Time: t0, Symbol: "BTCUSDT", Side: "buy", Allowed: true,
		Reason: "ok", Level: "LOW", PositionSize: 400, PlannedRiskUSD: 20,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionNoRows(t *testing.T) {
	t.Parallel()

	j, mock := newMockJournal(t)
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(positionCols))

	_, err := j.GetPosition(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionBadRows(t *testing.T) {
	t.Parallel()

	good := func() []driver.Value {
		return []driver.Value{
			"P1", "T1", "binance", "spot", "BTCUSDT", "buy", "open",
			"100", "1", "1", "0", "0",
			`{}`, `{"stop_loss_price":90}`, "", t0, t0, nil,
		}
	}

	tests := []struct {
		name    string
		col     int
		value   driver.Value
		wantErr string
	}{
		{"bad decimal", 7, "abc", "avg_entry_price"},
		{"bad orders", 12, "{", "orders"},
		{"bad risk state", 13, "[", "risk state"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			j, mock := newMockJournal(t)
			row := good()
			row[tt.col] = tt.value

			mock.ExpectQuery("SELECT (.+) FROM positions").
				WithArgs("P1").
				WillReturnRows(sqlmock.NewRows(positionCols).AddRow(row...))

			_, err := j.GetPosition(context.Background(), "P1")
			assert.ErrorContains(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListDecisionsQueryShape(t *testing.T) {
	t.Parallel()

	j, mock := newMockJournal(t)
	mock.ExpectQuery(`SELECT (.+) FROM decisions WHERE symbol = \? ORDER BY time DESC, id DESC LIMIT \?`).
		WithArgs("ETHUSDT", 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "time", "symbol", "side", "allowed", "reason", "risk_level",
			"flags", "adjusted_capital", "position_size", "planned_risk_usd",
		}).AddRow("D9", t0, "ETHUSDT", "sell", false, "daily loss limit", "HIGH",
			`["DAILY_LOSS_LIMIT"]`, nil, "0", "0"))

	ds, err := j.ListDecisions(context.Background(), "ETHUSDT", 5)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.False(t, ds[0].Allowed)
	assert.Equal(t, "DAILY_LOSS_LIMIT", string(ds[0].Flags[0]))
	assert.Nil(t, ds[0].AdjustedCapital)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRealizedSinceQueryError(t *testing.T) {
	t.Parallel()

	j, mock := newMockJournal(t)
	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT realized_pnl_usd FROM positions").
		WithArgs(since).
		WillReturnError(errors.New("locked"))

	_, err := j.RealizedSince(context.Background(), since)
	assert.ErrorContains(t, err, "realized since")
	assert.NoError(t, mock.ExpectationsWereMet())
}
