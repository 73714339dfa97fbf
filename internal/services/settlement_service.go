// internal/services/settlement_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pawmarket/auction-backend/internal/auctionerrors"
	"github.com/pawmarket/auction-backend/internal/models"
)

// SettlementService transitions expired auctions to their terminal status.
// There is no background scheduler: the sweep runs inline before every read
// or write that touches an auction, so an expired-but-active record is never
// served as biddable. The transition is conditioned on status = active,
// which makes concurrent and repeated sweeps no-ops rather than
// double-settlements.
type SettlementService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

func NewSettlementService(db *gorm.DB, notificationService *NotificationService) *SettlementService {
	return &SettlementService{
		db:                  db,
		notificationService: notificationService,
	}
}

// SweepAuction settles a single auction if its deadline has passed. Used as
// a cheap pre-check before reads and writes scoped to that auction.
func (s *SettlementService) SweepAuction(auctionID uuid.UUID) error {
	return s.sweep(&auctionID)
}

// SweepExpired settles every expired auction still marked active.
func (s *SettlementService) SweepExpired() error {
	return s.sweep(nil)
}

func (s *SettlementService) sweep(scope *uuid.UUID) error {
	now := time.Now()

	query := s.db.Model(&models.Auction{}).
		Where("status = ? AND end_at <= ?", models.AuctionStatusActive, now)
	if scope != nil {
		query = query.Where("id = ?", *scope)
	}

	var expired []models.Auction
	if err := query.Find(&expired).Error; err != nil {
		return auctionerrors.Infra(err)
	}

	for i := range expired {
		if err := s.settle(&expired[i]); err != nil {
			return err
		}
	}

	return nil
}

// settle transitions one auction. A racing sweep or bid may have changed
// the row since the candidate select; the status-conditioned update decides
// who wins, and the loser does nothing.
func (s *SettlementService) settle(auction *models.Auction) error {
	var topBid *models.Bid
	settled := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var top models.Bid
		err := tx.Where("auction_id = ?", auction.ID).
			Order("amount DESC").
			First(&top).Error
		switch {
		case err == nil:
			topBid = &top
		case errors.Is(err, gorm.ErrRecordNotFound):
			topBid = nil
		default:
			return err
		}

		updates := map[string]interface{}{
			"status":    models.AuctionStatusNoSale,
			"winner_id": nil,
		}
		if topBid != nil {
			updates["status"] = models.AuctionStatusEnded
			updates["winner_id"] = topBid.BidderID
		}

		// A concurrent bid could still extend end_at between the candidate
		// select and this update, so the deadline is re-checked here too.
		result := tx.Model(&models.Auction{}).
			Where("id = ? AND status = ? AND end_at <= ?", auction.ID, models.AuctionStatusActive, time.Now()).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		settled = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return auctionerrors.Infra(err)
	}

	if !settled {
		// Another sweep got there first, or a late bid pushed the deadline.
		return nil
	}

	sold := topBid != nil
	if sold {
		auction.Status = models.AuctionStatusEnded
		auction.WinnerID = &topBid.BidderID
		auction.CurrentPrice = topBid.Amount
	} else {
		auction.Status = models.AuctionStatusNoSale
	}

	logrus.WithFields(logrus.Fields{
		"auction_id": auction.ID,
		"status":     auction.Status,
		"sold":       sold,
	}).Info("Auction settled")

	go func(a models.Auction, top *models.Bid) {
		if top != nil {
			s.notificationService.SendAuctionWonNotification(top.BidderID, &a)
		}
		s.notificationService.SendAuctionEndedNotification(&a, top != nil)
	}(*auction, topBid)

	return nil
}
