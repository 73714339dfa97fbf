// internal/auction/pricing_test.go
package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncrementFor(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		expected int64
	}{
		{"lowest band", 500, 100},
		{"just below first boundary", 999, 100},
		{"first boundary", 1_000, 500},
		{"second band", 9_999, 500},
		{"second boundary", 10_000, 1_000},
		{"third band", 99_999, 1_000},
		{"third boundary", 100_000, 2_000},
		{"fourth band", 499_999, 2_000},
		{"fourth boundary", 500_000, 5_000},
		{"fifth boundary", 1_000_000, 10_000},
		{"open ended band", 25_000_000, 10_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IncrementFor(tt.price))
		})
	}
}

func TestIncrementForIsPositiveAndNonDecreasing(t *testing.T) {
	prices := []int64{
		MinStartPrice, 2_500, 9_000, 10_000, 42_000, 99_999,
		100_000, 250_000, 500_000, 999_999, 1_000_000, 10_000_000,
	}

	var prev int64
	for _, price := range prices {
		inc := IncrementFor(price)
		assert.Positive(t, inc, "increment must be positive at price %d", price)
		assert.GreaterOrEqual(t, inc, prev, "increment must not shrink at price %d", price)
		prev = inc
	}
}

func TestMinimumBid(t *testing.T) {
	// Price 100,000 sits in the 2,000-increment band, so the floor for the
	// next bid is 102,000 and 101,000 is below it.
	assert.Equal(t, int64(102_000), MinimumBid(100_000))
	assert.Greater(t, MinimumBid(100_000), int64(101_000))

	assert.Equal(t, int64(1_500), MinimumBid(1_000))
	assert.Equal(t, int64(1_010_000), MinimumBid(1_000_000))
}
