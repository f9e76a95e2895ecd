package truth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactIndex(t *testing.T) {
	tests := []struct {
		raw  int64
		want int64
	}{
		{0, 0},
		{42, 42},
		{999_999, 999_999},
		{1_000_000, 100_000},
		{12_345_678, 145_678},
		{5_000_000_123, 500_123},
		{-7, -7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompactIndex(tt.raw), "raw %d", tt.raw)
	}
}

func TestCompactIndex_BelowThresholdIsIdentity(t *testing.T) {
	for v := int64(0); v < 1_000_000; v += 9_973 {
		assert.Equal(t, v, CompactIndex(v))
	}
}

func TestCompactCollisions(t *testing.T) {
	got := CompactCollisions([]int64{12_345_678, 19_945_678, 12_345_678, 42, 5_000_000_123})
	assert.Equal(t, map[int64][]int64{145_678: {12_345_678, 19_945_678}}, got)

	assert.Empty(t, CompactCollisions([]int64{1, 2, 3}))
}
