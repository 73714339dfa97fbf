// internal/auction/eligibility.go
package auction

import (
	"time"

	"github.com/pawmarket/auction-backend/internal/models"
)

// EditRequest carries the facts the edit decision depends on.
type EditRequest struct {
	IsOwner   bool
	CreatedAt time.Time
	Status    models.AuctionStatus
	BidCount  int64
}

// CanEdit reports whether an owner edit (or cancellation) is still allowed.
// Once any bid exists, or the grace window has lapsed, edits would
// retroactively change terms bidders relied on and are refused regardless
// of owner intent.
func CanEdit(req EditRequest, now time.Time) bool {
	return req.IsOwner &&
		req.Status == models.AuctionStatusActive &&
		req.BidCount == 0 &&
		!now.After(EditDeadline(req.CreatedAt))
}
