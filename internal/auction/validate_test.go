// internal/auction/validate_test.go
package auction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmarket/auction-backend/internal/auctionerrors"
)

func TestParseAmount(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		amount, err := ParseAmount(json.Number("102000"))
		require.NoError(t, err)
		assert.Equal(t, int64(102_000), amount)
	})

	t.Run("fractional", func(t *testing.T) {
		_, err := ParseAmount(json.Number("102000.5"))
		assert.ErrorIs(t, err, auctionerrors.ErrAmountNotInteger)
	})

	t.Run("scientific notation", func(t *testing.T) {
		_, err := ParseAmount(json.Number("1e5"))
		assert.ErrorIs(t, err, auctionerrors.ErrAmountNotInteger)
	})
}

func TestValidateBid(t *testing.T) {
	tests := []struct {
		name         string
		currentPrice int64
		amount       int64
		wantErr      error
	}{
		{"below increment floor", 100_000, 101_000, auctionerrors.ErrBidTooLow},
		{"exactly at the floor", 100_000, 102_000, nil},
		{"above the floor, off step", 100_000, 102_500, nil},
		{"far above the floor", 100_000, 150_000, nil},
		{"equal to current price", 100_000, 100_000, auctionerrors.ErrBidTooLow},
		{"zero", 100_000, 0, auctionerrors.ErrAmountNotPositive},
		{"negative", 100_000, -500, auctionerrors.ErrAmountNotPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBid(tt.currentPrice, tt.amount)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
