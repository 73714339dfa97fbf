// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification row. Delivery is best effort; the
// bidding engine never fails an operation because a notification could not
// be written or sent.
type Notification struct {
	BaseModel
	RecipientID uuid.UUID        `json:"recipient_id" gorm:"type:uuid;not null;index"`
	Kind        NotificationKind `json:"kind" gorm:"type:varchar(30);not null;index"`
	Message     string           `json:"message" gorm:"type:text"`
	TargetID    *uuid.UUID       `json:"target_id,omitempty" gorm:"type:uuid"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
}
