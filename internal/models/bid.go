// internal/models/bid.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is an immutable fact: created once by the bid transaction, never
// updated or deleted. Amounts strictly increase per auction, so the highest
// bid is always unique.
type Bid struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AuctionID uuid.UUID `json:"auction_id" gorm:"type:uuid;not null;index"`
	BidderID  uuid.UUID `json:"bidder_id" gorm:"type:uuid;not null;index"`
	Amount    int64     `json:"amount" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Bidder User `json:"bidder,omitempty" gorm:"foreignKey:BidderID"`
}
