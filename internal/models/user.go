// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username        string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email           string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string     `json:"-" gorm:"size:255;not null"`
	UserType        UserType   `json:"user_type" gorm:"type:varchar(20);not null"`
	Status          UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	Phone           string     `json:"phone,omitempty" gorm:"size:30"`
	ProfileData     JSONB      `json:"profile_data" gorm:"type:jsonb"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	// Relationships
	Auctions []Auction `json:"auctions,omitempty" gorm:"foreignKey:SellerID"`
	Bids     []Bid     `json:"bids,omitempty" gorm:"foreignKey:BidderID"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// HasContactChannel reports whether the account carries any reachable
// contact detail beyond the login email.
func (u *User) HasContactChannel() bool {
	if u.Phone != "" {
		return true
	}
	if u.ProfileData == nil {
		return false
	}
	for _, key := range []string{"contact_email", "contact_phone", "profile_url"} {
		if v, ok := u.ProfileData[key].(string); ok && v != "" {
			return true
		}
	}
	return false
}
