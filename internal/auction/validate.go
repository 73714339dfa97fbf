// internal/auction/validate.go
package auction

import (
	"encoding/json"
	"strconv"

	"github.com/pawmarket/auction-backend/internal/auctionerrors"
)

// MinStartPrice is the lowest start price an auction may open at. Prices at
// or above it keep every increment tier positive.
const MinStartPrice int64 = 1_000

// ParseAmount converts a JSON number into an integer bid amount. Fractional
// or malformed values map to the "not an integer" error kind, which the UI
// renders differently from "too low".
func ParseAmount(n json.Number) (int64, error) {
	amount, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, auctionerrors.ErrAmountNotInteger
	}
	return amount, nil
}

// ValidateBid checks a proposed amount against the current price and the
// increment policy. It assumes amount already parsed as an integer.
func ValidateBid(currentPrice, amount int64) error {
	if amount <= 0 {
		return auctionerrors.ErrAmountNotPositive
	}
	if amount < MinimumBid(currentPrice) {
		return auctionerrors.ErrBidTooLow
	}
	return nil
}
