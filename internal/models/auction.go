// internal/models/auction.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Auction is the aggregate root of the bidding engine. CurrentPrice and
// MinBidIncrement are a materialized view of the latest accepted bid; they
// are written only by the bid transaction and the settlement sweep, never
// directly by handlers.
type Auction struct {
	BaseModel
	SellerID        uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	Title           string         `json:"title" gorm:"size:255;not null"`
	Description     string         `json:"description" gorm:"type:text"`
	Category        string         `json:"category" gorm:"size:100;index"`
	Photos          pq.StringArray `json:"photos" gorm:"type:text[]"`
	StartPrice      int64          `json:"start_price" gorm:"not null"`
	CurrentPrice    int64          `json:"current_price" gorm:"not null"`
	MinBidIncrement int64          `json:"min_bid_increment" gorm:"not null"`
	EndAt           time.Time      `json:"end_at" gorm:"not null;index"`
	Status          AuctionStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
	WinnerID        *uuid.UUID     `json:"winner_id,omitempty" gorm:"type:uuid"`
	ContactPhone    string         `json:"contact_phone,omitempty" gorm:"size:30"`
	ContactEmail    string         `json:"contact_email,omitempty" gorm:"size:255"`
	ProfileURL      string         `json:"profile_url,omitempty" gorm:"size:500"`

	// Relationships
	Seller User  `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Winner *User `json:"winner,omitempty" gorm:"foreignKey:WinnerID"`
	Bids   []Bid `json:"bids,omitempty" gorm:"foreignKey:AuctionID"`
}

// Expired reports whether the deadline has passed. It says nothing about
// status; an expired auction stays ACTIVE until the sweep settles it.
func (a *Auction) Expired(now time.Time) bool {
	return !a.EndAt.After(now)
}
