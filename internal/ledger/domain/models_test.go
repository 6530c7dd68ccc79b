package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBalanceClampsAvailable(t *testing.T) {
	b := NewBalance(1, 500, 200)
	assert.Equal(t, int64(300), b.Available)

	b = NewBalance(1, 100, 150)
	assert.Equal(t, int64(0), b.Available)
}

func TestApplyHeadroomUsesLargerAppliedFigure(t *testing.T) {
	assert.Equal(t, int64(60), ApplyHeadroom(100, 40, 10))
	assert.Equal(t, int64(30), ApplyHeadroom(100, 40, 70))
	assert.Equal(t, int64(0), ApplyHeadroom(100, 120, 0))
}

func TestAppliedAmount(t *testing.T) {
	assert.Equal(t, int64(50), AppliedAmount(50, 100, 100))
	assert.Equal(t, int64(30), AppliedAmount(50, 30, 100))
	assert.Equal(t, int64(20), AppliedAmount(50, 100, 20))
	assert.Equal(t, int64(0), AppliedAmount(50, 0, 100))
	assert.Equal(t, int64(0), AppliedAmount(-5, 10, 10))
}
