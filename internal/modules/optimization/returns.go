// Package optimization computes risk-constrained portfolio allocations from
// historical return matrices.
package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ReturnsMatrix holds per-period simple returns, one column per asset.
type ReturnsMatrix struct {
	Assets []string
	Rows   [][]float64
}

// NewReturnsMatrix creates a validated returns matrix. Every row must carry
// one value per asset.
func NewReturnsMatrix(assets []string, rows [][]float64) (ReturnsMatrix, error) {
	if len(assets) == 0 {
		return ReturnsMatrix{}, fmt.Errorf("returns must contain at least one asset with data")
	}
	if len(rows) == 0 {
		return ReturnsMatrix{}, fmt.Errorf("returns must contain at least one period of data")
	}
	for i, row := range rows {
		if len(row) != len(assets) {
			return ReturnsMatrix{}, fmt.Errorf("returns row %d has %d values, expected %d", i, len(row), len(assets))
		}
	}
	return ReturnsMatrix{Assets: assets, Rows: rows}, nil
}

// NumAssets returns the number of asset columns.
func (r ReturnsMatrix) NumAssets() int {
	return len(r.Assets)
}

// NumPeriods returns the number of observation rows.
func (r ReturnsMatrix) NumPeriods() int {
	return len(r.Rows)
}

// Covariance computes the sample covariance matrix of the asset returns.
func (r ReturnsMatrix) Covariance() *mat.SymDense {
	rows := r.NumPeriods()
	cols := r.NumAssets()
	data := make([]float64, 0, rows*cols)
	for _, row := range r.Rows {
		data = append(data, row...)
	}
	observations := mat.NewDense(rows, cols, data)

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, observations, nil)
	return cov
}

// MeanReturns computes the per-asset arithmetic mean return.
func (r ReturnsMatrix) MeanReturns() []float64 {
	column := make([]float64, r.NumPeriods())
	means := make([]float64, r.NumAssets())
	for j := 0; j < r.NumAssets(); j++ {
		for i, row := range r.Rows {
			column[i] = row[j]
		}
		means[j] = stat.Mean(column, nil)
	}
	return means
}
