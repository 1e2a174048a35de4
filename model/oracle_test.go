package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithinRangeIsInclusive(t *testing.T) {
	assert.True(t, WithinRange(20, 20, 80))
	assert.True(t, WithinRange(80, 20, 80))
	assert.True(t, WithinRange(50, 20, 80))
	assert.False(t, WithinRange(19, 20, 80))
	assert.False(t, WithinRange(81, 20, 80))
	assert.False(t, WithinRange(-5, 20, 80))
}

func TestWithinRangeExtremes(t *testing.T) {
	assert.False(t, WithinRange(math.MaxInt32, 20, 80))
	assert.False(t, WithinRange(math.MinInt32, 20, 80))
	assert.True(t, WithinRange(1300, 1200, 1500))
}
