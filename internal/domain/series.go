// Package domain contains pure value types shared across modules.
// It has no infrastructure dependencies.
package domain

import (
	"fmt"
	"time"
)

// Series is an ordered, timestamp-indexed sequence of float64 values.
// The index is strictly increasing; this is enforced at construction and
// every two-series operation requires identical indices.
type Series struct {
	times  []time.Time
	values []float64
}

// NewSeries creates a series from parallel time/value slices.
// The index must be strictly increasing and match the value count.
func NewSeries(times []time.Time, values []float64) (Series, error) {
	if len(times) != len(values) {
		return Series{}, fmt.Errorf("series index has %d timestamps but %d values", len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return Series{}, fmt.Errorf("series index must be strictly increasing (violation at position %d)", i)
		}
	}
	s := Series{
		times:  make([]time.Time, len(times)),
		values: make([]float64, len(values)),
	}
	copy(s.times, times)
	copy(s.values, values)
	return s, nil
}

// ConstantSeries creates a series holding the same value at every timestamp
// of the reference series. Used for buy-and-hold benchmarks.
func ConstantSeries(ref Series, value float64) Series {
	values := make([]float64, ref.Len())
	for i := range values {
		values[i] = value
	}
	out, _ := NewSeries(ref.times, values)
	return out
}

// Len returns the number of points in the series.
func (s Series) Len() int {
	return len(s.values)
}

// Time returns the timestamp at position i.
func (s Series) Time(i int) time.Time {
	return s.times[i]
}

// Value returns the value at position i.
func (s Series) Value(i int) float64 {
	return s.values[i]
}

// First returns the first value. Panics on an empty series.
func (s Series) First() float64 {
	return s.values[0]
}

// Last returns the last value. Panics on an empty series.
func (s Series) Last() float64 {
	return s.values[len(s.values)-1]
}

// Values returns a copy of the value slice.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Times returns a copy of the timestamp index.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s.times))
	copy(out, s.times)
	return out
}

// SameIndex reports whether two series share an identical timestamp index.
func (s Series) SameIndex(other Series) bool {
	if len(s.times) != len(other.times) {
		return false
	}
	for i := range s.times {
		if !s.times[i].Equal(other.times[i]) {
			return false
		}
	}
	return true
}

// PctChange returns period-over-period simple returns.
// The result has one fewer point than the input (the first period is dropped).
// A zero previous value yields a zero return for that period.
func (s Series) PctChange() []float64 {
	if len(s.values) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(s.values)-1)
	for i := 1; i < len(s.values); i++ {
		if s.values[i-1] != 0 {
			returns[i-1] = (s.values[i] - s.values[i-1]) / s.values[i-1]
		}
	}
	return returns
}

// ClipLower returns a copy of the series with every value below floor
// replaced by floor.
func (s Series) ClipLower(floor float64) Series {
	values := make([]float64, len(s.values))
	for i, v := range s.values {
		if v < floor {
			values[i] = floor
		} else {
			values[i] = v
		}
	}
	out, _ := NewSeries(s.times, values)
	return out
}

// WithValues returns a new series carrying this series' index and the
// provided values. The value count must match the index length.
func (s Series) WithValues(values []float64) (Series, error) {
	return NewSeries(s.times, values)
}
