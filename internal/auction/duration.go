// internal/auction/duration.go
package auction

import "time"

// Duration bounds are measured from "now" both at creation and at edit time,
// never from the original creation timestamp.
const (
	MinDuration = 24 * time.Hour
	MaxDuration = 14 * 24 * time.Hour

	// EditWindow is the grace period after creation during which the owner
	// may still edit or cancel a bid-free auction.
	EditWindow = 10 * time.Minute
)

// IsValidDuration reports whether endAt is between MinDuration and
// MaxDuration away from now.
func IsValidDuration(endAt, now time.Time) bool {
	d := endAt.Sub(now)
	return d >= MinDuration && d <= MaxDuration
}

// EditDeadline returns the last instant at which an owner edit is allowed.
func EditDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(EditWindow)
}
