// internal/auction/pricing.go
package auction

// priceTier maps a price band to the bid increment required within it.
// UpTo is exclusive; the last tier is open ended.
type priceTier struct {
	UpTo      int64
	Increment int64
}

// Increment tiers are a compile-time constant table. Increments must be
// non-decreasing as prices climb, which keeps MinimumBid monotone.
var priceTiers = []priceTier{
	{UpTo: 1_000, Increment: 100},
	{UpTo: 10_000, Increment: 500},
	{UpTo: 100_000, Increment: 1_000},
	{UpTo: 500_000, Increment: 2_000},
	{UpTo: 1_000_000, Increment: 5_000},
	{UpTo: 0, Increment: 10_000}, // open ended
}

// IncrementFor returns the minimum bid increment for the given price.
func IncrementFor(price int64) int64 {
	for _, tier := range priceTiers {
		if tier.UpTo == 0 || price < tier.UpTo {
			return tier.Increment
		}
	}
	return priceTiers[len(priceTiers)-1].Increment
}

// MinimumBid returns the lowest amount the next bid must reach. The
// increment is a floor, not a lock step: any amount at or above this value
// is acceptable.
func MinimumBid(price int64) int64 {
	return price + IncrementFor(price)
}
