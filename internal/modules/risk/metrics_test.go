package risk

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/aetherquant/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func equitySeries(t *testing.T, values []float64) domain.Series {
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

func TestAnnualizedReturn_ShortPathsReturnZero(t *testing.T) {
	assert.Zero(t, AnnualizedReturn(equitySeries(t, nil), DefaultPeriodsPerYear))
	assert.Zero(t, AnnualizedReturn(equitySeries(t, []float64{100}), DefaultPeriodsPerYear))
}

func TestAnnualizedReturn_FullYearMatchesTotalReturn(t *testing.T) {
	// 252 points spanning exactly one year: annualized equals total.
	values := make([]float64, 252)
	for i := range values {
		values[i] = 100
	}
	values[251] = 110

	got := AnnualizedReturn(equitySeries(t, values), DefaultPeriodsPerYear)
	assert.InDelta(t, 0.10, got, 1e-9)
}

func TestAnnualizedReturn_GeometricOverTwoYears(t *testing.T) {
	values := make([]float64, 504)
	for i := range values {
		values[i] = 100
	}
	values[503] = 121 // +21% over two years → 10% per year geometric

	got := AnnualizedReturn(equitySeries(t, values), DefaultPeriodsPerYear)
	assert.InDelta(t, 0.10, got, 1e-9)
}

func TestMaxDrawdown_KnownPath(t *testing.T) {
	got := MaxDrawdown(equitySeries(t, []float64{100, 110, 90, 120}))
	assert.InDelta(t, 90.0/110.0-1, got, 1e-9)
}

func TestMaxDrawdown_MonotonicPathIsZero(t *testing.T) {
	assert.Zero(t, MaxDrawdown(equitySeries(t, []float64{100, 100, 105, 120})))
}

func TestMaxDrawdown_NeverPositive(t *testing.T) {
	paths := [][]float64{
		{100, 120, 80, 140, 60},
		{50, 40, 30},
		{1},
	}
	for _, path := range paths {
		assert.LessOrEqual(t, MaxDrawdown(equitySeries(t, path)), 0.0)
	}
}

func TestSharpeRatio_DegenerateInputsReturnZero(t *testing.T) {
	// Too short for any period return.
	assert.Zero(t, SharpeRatio(equitySeries(t, []float64{100}), 0, DefaultPeriodsPerYear))
	// A single period return has undefined sample deviation.
	assert.Zero(t, SharpeRatio(equitySeries(t, []float64{100, 110}), 0, DefaultPeriodsPerYear))
	// Constant returns have zero deviation.
	assert.Zero(t, SharpeRatio(equitySeries(t, []float64{100, 110, 121}), 0, DefaultPeriodsPerYear))
}

func TestSharpeRatio_PositiveForUpwardDriftWithNoise(t *testing.T) {
	values := []float64{100, 102, 101, 104, 103, 106, 105, 108}
	got := SharpeRatio(equitySeries(t, values), 0, DefaultPeriodsPerYear)
	assert.Greater(t, got, 0.0)
}

func TestSharpeRatio_RiskFreeRateLowersRatio(t *testing.T) {
	values := []float64{100, 102, 101, 104, 103, 106, 105, 108}
	equity := equitySeries(t, values)

	withoutRate := SharpeRatio(equity, 0, DefaultPeriodsPerYear)
	withRate := SharpeRatio(equity, 0.05, DefaultPeriodsPerYear)
	assert.Less(t, withRate, withoutRate)
}

func TestSharpeRatio_HandComputedTwoReturns(t *testing.T) {
	// Returns: +10%, -5%. Mean 0.025, sample std of {0.1, -0.05}.
	equity := equitySeries(t, []float64{100, 110, 104.5})

	mean := 0.025
	std := math.Sqrt(math.Pow(0.1-mean, 2) + math.Pow(-0.05-mean, 2)) // n-1 = 1
	want := mean / std * math.Sqrt(252)

	assert.InDelta(t, want, SharpeRatio(equity, 0, DefaultPeriodsPerYear), 1e-9)
}
