package portfolio

import (
	"testing"
	"time"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailySeries(t *testing.T, values []float64) domain.Series {
	t.Helper()
	times := make([]time.Time, len(values))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range times {
		times[i] = start.AddDate(0, 0, i)
	}
	s, err := domain.NewSeries(times, values)
	require.NoError(t, err)
	return s
}

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig(0, 1)
	assert.Error(t, err)

	_, err = NewConfig(-100, 1)
	assert.Error(t, err)

	_, err = NewConfig(100, -1)
	assert.Error(t, err)

	cfg, err := NewConfig(100_000, 1)
	require.NoError(t, err)
	assert.InDelta(t, 100_000.0, cfg.InitialCash, 1e-9)
}

func TestEquityCurve_FirstPointIsInitialCash(t *testing.T) {
	cfg, err := NewConfig(10_000, 0)
	require.NoError(t, err)

	prices := dailySeries(t, []float64{100, 110, 121})
	positions := dailySeries(t, []float64{1, 1, 1})

	curve, err := EquityCurve(positions, prices, cfg)
	require.NoError(t, err)
	require.Equal(t, 3, curve.Len())
	assert.InDelta(t, 10_000.0, curve.Value(0), 1e-9)
}

func TestEquityCurve_PositionsShiftOnePeriod(t *testing.T) {
	cfg, err := NewConfig(10_000, 0)
	require.NoError(t, err)

	// Position is taken at t=1; the +10% move from t=0 to t=1 must not be
	// earned, only the move over (t=1, t=2].
	prices := dailySeries(t, []float64{100, 110, 132})
	positions := dailySeries(t, []float64{0, 1, 1})

	curve, err := EquityCurve(positions, prices, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 10_000.0, curve.Value(1), 1e-9)
	assert.InDelta(t, 12_000.0, curve.Value(2), 1e-6)
}

func TestEquityCurve_FullExposureCompounds(t *testing.T) {
	cfg, err := NewConfig(10_000, 0)
	require.NoError(t, err)

	prices := dailySeries(t, []float64{100, 110, 121})
	positions := dailySeries(t, []float64{1, 1, 1})

	curve, err := EquityCurve(positions, prices, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 11_000.0, curve.Value(1), 1e-6)
	assert.InDelta(t, 12_100.0, curve.Value(2), 1e-6)
}

func TestEquityCurve_CommissionChargedOnTurnover(t *testing.T) {
	cfg, err := NewConfig(10_000, 100) // 1% per unit of turnover
	require.NoError(t, err)

	// Flat prices isolate the commission drag.
	prices := dailySeries(t, []float64{100, 100, 100})
	positions := dailySeries(t, []float64{0, 1, 0})

	curve, err := EquityCurve(positions, prices, cfg)
	require.NoError(t, err)
	// t=1: turnover 1 → 1% drag. t=2: turnover 1 again.
	assert.InDelta(t, 10_000.0*0.99, curve.Value(1), 1e-6)
	assert.InDelta(t, 10_000.0*0.99*0.99, curve.Value(2), 1e-6)
}

func TestEquityCurve_ShortPositionEarnsInverseReturn(t *testing.T) {
	cfg, err := NewConfig(10_000, 0)
	require.NoError(t, err)

	prices := dailySeries(t, []float64{100, 90})
	positions := dailySeries(t, []float64{-1, -1})

	curve, err := EquityCurve(positions, prices, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 11_000.0, curve.Value(1), 1e-6)
}

func TestEquityCurve_MismatchedIndexFails(t *testing.T) {
	cfg, err := NewConfig(10_000, 0)
	require.NoError(t, err)

	prices := dailySeries(t, []float64{100, 110})
	positions := dailySeries(t, []float64{1})

	_, err = EquityCurve(positions, prices, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same index")
}
