package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturnsMatrix_Validation(t *testing.T) {
	_, err := NewReturnsMatrix(nil, [][]float64{{0.1}})
	assert.Error(t, err, "no assets")

	_, err = NewReturnsMatrix([]string{"A"}, nil)
	assert.Error(t, err, "no periods")

	_, err = NewReturnsMatrix([]string{"A", "B"}, [][]float64{{0.1}})
	assert.Error(t, err, "ragged row")
}

func TestCovariance_TwoAssetHandCheck(t *testing.T) {
	returns, err := NewReturnsMatrix([]string{"A", "B"}, [][]float64{
		{0.01, 0.02},
		{-0.01, -0.02},
		{0.03, 0.06},
		{-0.03, -0.06},
	})
	require.NoError(t, err)

	cov := returns.Covariance()
	require.Equal(t, 2, cov.SymmetricDim())

	// Sample variance of A: mean 0, sum of squares 0.002, n-1 = 3.
	varA := (0.0001 + 0.0001 + 0.0009 + 0.0009) / 3
	assert.InDelta(t, varA, cov.At(0, 0), 1e-12)
	// B = 2A exactly, so var(B) = 4 var(A) and cov(A,B) = 2 var(A).
	assert.InDelta(t, 4*varA, cov.At(1, 1), 1e-12)
	assert.InDelta(t, 2*varA, cov.At(0, 1), 1e-12)
}

func TestMeanReturns(t *testing.T) {
	returns, err := NewReturnsMatrix([]string{"A", "B"}, [][]float64{
		{0.02, 0.00},
		{0.04, 0.02},
	})
	require.NoError(t, err)

	means := returns.MeanReturns()
	require.Len(t, means, 2)
	assert.InDelta(t, 0.03, means[0], 1e-12)
	assert.InDelta(t, 0.01, means[1], 1e-12)
}
