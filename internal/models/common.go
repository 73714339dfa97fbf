// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeSeller UserType = "seller"
	UserTypeBuyer  UserType = "buyer"
	UserTypeAdmin  UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusNoSale    AuctionStatus = "no_sale"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether the status is final. A terminal auction never
// returns to active.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusEnded || s == AuctionStatusNoSale || s == AuctionStatusCancelled
}

type NotificationKind string

const (
	NotificationKindNewBid        NotificationKind = "new_bid"
	NotificationKindOutbid        NotificationKind = "outbid"
	NotificationKindAuctionWon    NotificationKind = "auction_won"
	NotificationKindAuctionEnded  NotificationKind = "auction_ended"
	NotificationKindAuctionNoSale NotificationKind = "auction_no_sale"
)
