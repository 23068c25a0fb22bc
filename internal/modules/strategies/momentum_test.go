package strategies

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

func TestNewMovingAverageCross_Validation(t *testing.T) {
	_, err := NewMovingAverageCross(MomentumConfig{LookbackFast: 0, LookbackSlow: 5})
	assert.Error(t, err)

	_, err = NewMovingAverageCross(MomentumConfig{LookbackFast: 5, LookbackSlow: 5})
	assert.Error(t, err)

	_, err = NewMovingAverageCross(MomentumConfig{LookbackFast: 10, LookbackSlow: 5})
	assert.Error(t, err)

	_, err = NewMovingAverageCross(DefaultMomentumConfig())
	assert.NoError(t, err)
}

func TestTargetPositions_FlatBeforeSlowWindowFills(t *testing.T) {
	strategy, err := NewMovingAverageCross(MomentumConfig{LookbackFast: 2, LookbackSlow: 4})
	require.NoError(t, err)

	prices := dailySeries(t, []float64{100, 101, 102, 103, 104, 105})
	positions, err := strategy.TargetPositions(prices)
	require.NoError(t, err)
	require.Equal(t, prices.Len(), positions.Len())

	for i := 0; i < 3; i++ {
		assert.Zero(t, positions.Value(i), "position before warmup at %d", i)
	}
}

func TestTargetPositions_LongInUptrendShortInDowntrend(t *testing.T) {
	strategy, err := NewMovingAverageCross(MomentumConfig{LookbackFast: 2, LookbackSlow: 4})
	require.NoError(t, err)

	up := dailySeries(t, []float64{100, 102, 104, 106, 108, 110, 112, 114})
	positions, err := strategy.TargetPositions(up)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, positions.Last(), 1e-9)

	down := dailySeries(t, []float64{114, 112, 110, 108, 106, 104, 102, 100})
	positions, err = strategy.TargetPositions(down)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, positions.Last(), 1e-9)
}

func TestTargetPositions_ShortHistoryStaysFlat(t *testing.T) {
	strategy, err := NewMovingAverageCross(MomentumConfig{LookbackFast: 20, LookbackSlow: 50})
	require.NoError(t, err)

	prices := dailySeries(t, []float64{100, 101, 102})
	positions, err := strategy.TargetPositions(prices)
	require.NoError(t, err)
	require.Equal(t, 3, positions.Len())
	for i := 0; i < positions.Len(); i++ {
		assert.Zero(t, positions.Value(i))
	}
}

func TestSignal_ThresholdClassification(t *testing.T) {
	assert.Equal(t, ActionBuy, Signal(0.02, 0.01))
	assert.Equal(t, ActionSell, Signal(-0.02, 0.01))
	assert.Equal(t, ActionHold, Signal(0.005, 0.01))
	assert.Equal(t, ActionHold, Signal(-0.01, 0.01), "boundary is a hold")
}
