package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConstraints_RejectsNonPositiveMaxWeight(t *testing.T) {
	_, err := NewConstraints(false, 0)
	assert.Error(t, err)

	_, err = NewConstraints(true, -0.5)
	assert.Error(t, err)
}

func TestValidateFeasibility_AssetCount(t *testing.T) {
	c, err := NewConstraints(false, 0.5)
	require.NoError(t, err)

	assert.Error(t, c.ValidateFeasibility(0))
	assert.Error(t, c.ValidateFeasibility(-3))
	assert.NoError(t, c.ValidateFeasibility(2))
}

func TestValidateFeasibility_LongOnlyCap(t *testing.T) {
	// 0.3 × 3 = 0.9 < 1: long-only weights cannot reach a sum of 1.
	c, err := NewConstraints(false, 0.3)
	require.NoError(t, err)
	err = c.ValidateFeasibility(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "infeasible")

	// 0.3 × 4 = 1.2 ≥ 1: feasible.
	assert.NoError(t, c.ValidateFeasibility(4))

	// Shorting lifts the cap restriction entirely.
	c, err = NewConstraints(true, 0.3)
	require.NoError(t, err)
	assert.NoError(t, c.ValidateFeasibility(3))
}

func TestConstraints_Bounds(t *testing.T) {
	c, err := NewConstraints(false, 0.4)
	require.NoError(t, err)
	lower, upper := c.bounds()
	assert.Zero(t, lower)
	assert.InDelta(t, 0.4, upper, 1e-12)

	c, err = NewConstraints(true, 0.4)
	require.NoError(t, err)
	lower, upper = c.bounds()
	assert.InDelta(t, -0.4, lower, 1e-12)
	assert.InDelta(t, 0.4, upper, 1e-12)
}
