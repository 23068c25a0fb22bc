package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyIndex(n int) []time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = base.AddDate(0, 0, i)
	}
	return times
}

func TestNewSeries_Validation(t *testing.T) {
	times := dailyIndex(3)

	_, err := NewSeries(times, []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 timestamps but 2 values")

	// Duplicate timestamp.
	_, err = NewSeries([]time.Time{times[0], times[0], times[2]}, []float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
	assert.Contains(t, err.Error(), "position 1")

	// Out-of-order timestamp.
	_, err = NewSeries([]time.Time{times[1], times[0], times[2]}, []float64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")

	s, err := NewSeries(times, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1.0, s.First())
	assert.Equal(t, 3.0, s.Last())
}

func TestNewSeries_CopiesInputs(t *testing.T) {
	times := dailyIndex(2)
	values := []float64{10, 20}
	s, err := NewSeries(times, values)
	require.NoError(t, err)

	values[0] = 99
	assert.Equal(t, 10.0, s.Value(0), "series is detached from the caller's slice")
}

func TestSeries_SameIndex(t *testing.T) {
	times := dailyIndex(3)
	a, err := NewSeries(times, []float64{1, 2, 3})
	require.NoError(t, err)
	b, err := NewSeries(times, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.True(t, a.SameIndex(b))

	shorter, err := NewSeries(times[:2], []float64{1, 2})
	require.NoError(t, err)
	assert.False(t, a.SameIndex(shorter))

	shifted, err := NewSeries(dailyIndex(4)[1:], []float64{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, a.SameIndex(shifted))
}

func TestSeries_PctChange(t *testing.T) {
	s, err := NewSeries(dailyIndex(4), []float64{100, 110, 0, 50})
	require.NoError(t, err)

	returns := s.PctChange()
	require.Len(t, returns, 3)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -1.0, returns[1], 1e-12)
	assert.Equal(t, 0.0, returns[2], "a zero previous value yields a zero return")

	single, err := NewSeries(dailyIndex(1), []float64{100})
	require.NoError(t, err)
	assert.Empty(t, single.PctChange())
}

func TestSeries_ClipLower(t *testing.T) {
	s, err := NewSeries(dailyIndex(4), []float64{-1, 0, 1, -0.5})
	require.NoError(t, err)

	clipped := s.ClipLower(0)
	assert.Equal(t, []float64{0, 0, 1, 0}, clipped.Values())
	assert.True(t, s.SameIndex(clipped))
	assert.Equal(t, []float64{-1, 0, 1, -0.5}, s.Values(), "original is untouched")
}

func TestSeries_WithValues(t *testing.T) {
	s, err := NewSeries(dailyIndex(3), []float64{1, 2, 3})
	require.NoError(t, err)

	replaced, err := s.WithValues([]float64{7, 8, 9})
	require.NoError(t, err)
	assert.True(t, s.SameIndex(replaced))
	assert.Equal(t, []float64{7, 8, 9}, replaced.Values())

	_, err = s.WithValues([]float64{7, 8})
	assert.Error(t, err)
}

func TestConstantSeries(t *testing.T) {
	ref, err := NewSeries(dailyIndex(3), []float64{1, 2, 3})
	require.NoError(t, err)

	constant := ConstantSeries(ref, 1.5)
	assert.True(t, ref.SameIndex(constant))
	assert.Equal(t, []float64{1.5, 1.5, 1.5}, constant.Values())
}
