package runs

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/aristath/aetherquant/internal/modules/execution"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.InitSchema())
	return repo
}

func sampleEquity(t *testing.T) domain.Series {
	t.Helper()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.AddDate(0, 0, 1), base.AddDate(0, 0, 2)}
	series, err := domain.NewSeries(times, []float64{100_000, 100_500, 99_800})
	require.NoError(t, err)
	return series
}

func TestRecordRun_AndListRuns(t *testing.T) {
	repo := setupTestRepo(t)
	equity := sampleEquity(t)

	order, err := execution.NewOrder("spy", 10, execution.SideBuy, equity.Time(0))
	require.NoError(t, err)

	runID, err := repo.RecordRun(RunRecord{
		RunType:  "backtest",
		Symbol:   "spy",
		Period:   "1y",
		Interval: "1d",
		Payload:  map[string]any{"strategy": "ma_cross_20_50"},
		Metrics:  map[string]float64{"sharpe": 1.2, "max_drawdown": -0.08},
		Equity:   equity,
		Orders:   []execution.Order{order},
	})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	stored, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	run := stored[0]
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "backtest", run.RunType)
	assert.Equal(t, "SPY", run.Symbol, "symbols are normalized to upper case")
	require.NotNil(t, run.FinalEquity)
	assert.InDelta(t, 99_800.0, *run.FinalEquity, 1e-9)
	require.NotNil(t, run.OrdersPlaced)
	assert.Equal(t, int64(1), *run.OrdersPlaced)
}

func TestRecordRun_ValidatesInput(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.RecordRun(RunRecord{RunType: "", Symbol: "SPY"})
	assert.Error(t, err)

	_, err = repo.RecordRun(RunRecord{RunType: "backtest", Symbol: "   "})
	assert.Error(t, err)
}

func TestListRuns_NewestFirst(t *testing.T) {
	repo := setupTestRepo(t)

	for _, symbol := range []string{"SPY", "QQQ", "IWM"} {
		_, err := repo.RecordRun(RunRecord{RunType: "simulate", Symbol: symbol})
		require.NoError(t, err)
	}

	stored, err := repo.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "IWM", stored[0].Symbol)
	assert.Equal(t, "QQQ", stored[1].Symbol)

	_, err = repo.ListRuns(0)
	assert.Error(t, err)
}

func TestGetRunEquity_RoundTrip(t *testing.T) {
	repo := setupTestRepo(t)
	equity := sampleEquity(t)

	runID, err := repo.RecordRun(RunRecord{RunType: "backtest", Symbol: "SPY", Equity: equity})
	require.NoError(t, err)

	decoded, err := repo.GetRunEquity(runID)
	require.NoError(t, err)
	require.Equal(t, equity.Len(), decoded.Len())
	for i := 0; i < equity.Len(); i++ {
		assert.True(t, equity.Time(i).Equal(decoded.Time(i)))
		assert.InDelta(t, equity.Value(i), decoded.Value(i), 1e-9)
	}
}

func TestGetRunEquity_MissingAndEmpty(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetRunEquity(42)
	assert.Error(t, err, "unknown run id")

	runID, err := repo.RecordRun(RunRecord{RunType: "optimize", Symbol: "SPY"})
	require.NoError(t, err)

	decoded, err := repo.GetRunEquity(runID)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.Len())
}

func TestGetRunMetrics(t *testing.T) {
	repo := setupTestRepo(t)

	runID, err := repo.RecordRun(RunRecord{
		RunType: "backtest",
		Symbol:  "SPY",
		Metrics: map[string]float64{"annual_return": 0.11, "sharpe": 0.9},
	})
	require.NoError(t, err)

	metrics, err := repo.GetRunMetrics(runID)
	require.NoError(t, err)
	assert.InDelta(t, 0.11, metrics["annual_return"], 1e-9)
	assert.InDelta(t, 0.9, metrics["sharpe"], 1e-9)
}

func TestAuditLog(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.RecordAuditEvent("POST", "/api/backtest", 200, "req-1", "reader"))
	require.NoError(t, repo.RecordAuditEvent("GET", "/api/runs", 401, "req-2", "anonymous"))

	events, err := repo.ListAuditEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "GET", events[0].Method, "newest first")
	assert.Equal(t, 401, events[0].StatusCode)
	assert.Equal(t, "req-1", events[1].RequestID)

	_, err = repo.ListAuditEvents(-1)
	assert.Error(t, err)
}
