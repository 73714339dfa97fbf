// internal/services/notification_service.go
package services

import (
	"fmt"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pawmarket/auction-backend/internal/config"
	"github.com/pawmarket/auction-backend/internal/models"
)

// NotificationService is the fire-and-forget sink for engine events. Every
// public method persists an in-app notification row and sends a best-effort
// email; failures are logged and never propagate into the operation that
// triggered them.
type NotificationService struct {
	db     *gorm.DB
	config *config.Config
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:     db,
		config: config,
	}
}

// Bid notifications

func (s *NotificationService) SendNewBidNotification(auction *models.Auction, bid *models.Bid) {
	message := fmt.Sprintf("New bid of %d on your auction \"%s\"", bid.Amount, auction.Title)
	s.dispatch(auction.SellerID, models.NotificationKindNewBid, message, auction.ID)
}

func (s *NotificationService) SendOutbidNotification(previousBidderID uuid.UUID, auction *models.Auction, amount int64) {
	message := fmt.Sprintf("You were outbid on \"%s\"; the price is now %d", auction.Title, amount)
	s.dispatch(previousBidderID, models.NotificationKindOutbid, message, auction.ID)
}

// Settlement notifications

func (s *NotificationService) SendAuctionWonNotification(winnerID uuid.UUID, auction *models.Auction) {
	message := fmt.Sprintf("You won the auction \"%s\" at %d", auction.Title, auction.CurrentPrice)
	s.dispatch(winnerID, models.NotificationKindAuctionWon, message, auction.ID)
}

func (s *NotificationService) SendAuctionEndedNotification(auction *models.Auction, sold bool) {
	kind := models.NotificationKindAuctionEnded
	message := fmt.Sprintf("Your auction \"%s\" ended at %d", auction.Title, auction.CurrentPrice)
	if !sold {
		kind = models.NotificationKindAuctionNoSale
		message = fmt.Sprintf("Your auction \"%s\" ended without bids", auction.Title)
	}
	s.dispatch(auction.SellerID, kind, message, auction.ID)
}

// dispatch writes the in-app row and emails the recipient. Both legs are
// best effort.
func (s *NotificationService) dispatch(recipientID uuid.UUID, kind models.NotificationKind, message string, targetID uuid.UUID) {
	notification := &models.Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
		TargetID:    &targetID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"kind":         kind,
		}).Error("Failed to persist notification")
	}

	if err := s.emailRecipient(recipientID, string(kind), message); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"recipient_id": recipientID,
			"kind":         kind,
		}).Warn("Failed to send notification email")
	}
}

func (s *NotificationService) emailRecipient(recipientID uuid.UUID, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured
		return nil
	}

	var user models.User
	if err := s.db.First(&user, recipientID).Error; err != nil {
		return fmt.Errorf("recipient not found: %w", err)
	}

	return s.sendEmail(user.Email, subject, body)
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}
