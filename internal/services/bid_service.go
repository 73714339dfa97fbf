// internal/services/bid_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawmarket/auction-backend/internal/auction"
	"github.com/pawmarket/auction-backend/internal/auctionerrors"
	"github.com/pawmarket/auction-backend/internal/models"
)

// BidService owns the bid submission transaction. The correctness mechanism
// is a fresh read followed by a single transaction whose auction update is
// conditioned on the price that was read: of two concurrent bids, exactly
// one update matches and commits, and the loser gets a retryable state
// conflict instead of silently accepting a stale price.
type BidService struct {
	db                  *gorm.DB
	settlementService   *SettlementService
	notificationService *NotificationService
}

type PlaceBidResult struct {
	Bid          *models.Bid `json:"bid"`
	CurrentPrice int64       `json:"current_price"`
	EndAt        time.Time   `json:"end_at"`
	Extended     bool        `json:"extended"`
}

func NewBidService(db *gorm.DB, settlementService *SettlementService, notificationService *NotificationService) *BidService {
	return &BidService{
		db:                  db,
		settlementService:   settlementService,
		notificationService: notificationService,
	}
}

func (s *BidService) PlaceBid(auctionID, bidderID uuid.UUID, amount int64) (*PlaceBidResult, error) {
	// Bidder account must be active.
	var bidder models.User
	if err := s.db.First(&bidder, bidderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerrors.ErrAccountNotActive
		}
		return nil, auctionerrors.Infra(err)
	}
	if bidder.Status != models.UserStatusActive {
		return nil, auctionerrors.ErrAccountNotActive
	}

	// Self-healing: settle first so a bid can never land on a
	// technically-active-but-expired record.
	if err := s.settlementService.SweepAuction(auctionID); err != nil {
		return nil, err
	}

	// Fresh read, never from a request-scoped cache.
	var auc models.Auction
	if err := s.db.First(&auc, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerrors.ErrAuctionNotFound
		}
		return nil, auctionerrors.Infra(err)
	}

	if auc.Status != models.AuctionStatusActive {
		return nil, auctionerrors.ErrAuctionNotActive
	}
	if auc.SellerID == bidderID {
		return nil, auctionerrors.ErrSelfBid
	}

	var previousTop *models.Bid
	var top models.Bid
	err := s.db.Where("auction_id = ?", auctionID).Order("amount DESC").First(&top).Error
	switch {
	case err == nil:
		previousTop = &top
	case errors.Is(err, gorm.ErrRecordNotFound):
		previousTop = nil
	default:
		return nil, auctionerrors.Infra(err)
	}

	// The current top bidder may not bid again until outbid.
	if previousTop != nil && previousTop.BidderID == bidderID {
		return nil, auctionerrors.ErrAlreadyTopBidder
	}

	if err := auction.ValidateBid(auc.CurrentPrice, amount); err != nil {
		return nil, err
	}

	now := time.Now()
	nextEndAt, extended := auction.ExtendDeadline(auc.EndAt, now)

	bid := &models.Bid{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Conditional update: only commits if nobody moved the price since
		// the read above. end_at only ever moves forward.
		result := tx.Model(&models.Auction{}).
			Where("id = ? AND status = ? AND current_price = ?",
				auctionID, models.AuctionStatusActive, auc.CurrentPrice).
			Updates(map[string]interface{}{
				"current_price":     amount,
				"min_bid_increment": auction.IncrementFor(amount),
				"end_at":            nextEndAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return auctionerrors.ErrStaleBid
		}

		return tx.Create(bid).Error
	})
	if err != nil {
		if errors.Is(err, auctionerrors.ErrStaleBid) {
			return nil, auctionerrors.ErrStaleBid
		}
		return nil, auctionerrors.Infra(err)
	}

	// Post-commit, best effort.
	go func(a models.Auction, b models.Bid, prev *models.Bid) {
		s.notificationService.SendNewBidNotification(&a, &b)
		if prev != nil && prev.BidderID != b.BidderID {
			s.notificationService.SendOutbidNotification(prev.BidderID, &a, b.Amount)
		}
	}(auc, *bid, previousTop)

	return &PlaceBidResult{
		Bid:          bid,
		CurrentPrice: amount,
		EndAt:        nextEndAt,
		Extended:     extended,
	}, nil
}

// ListBids returns the bid history for an auction, newest first, after
// settling it if expired.
func (s *BidService) ListBids(auctionID uuid.UUID) ([]models.Bid, error) {
	if err := s.settlementService.SweepAuction(auctionID); err != nil {
		return nil, err
	}

	var exists int64
	if err := s.db.Model(&models.Auction{}).Where("id = ?", auctionID).Count(&exists).Error; err != nil {
		return nil, auctionerrors.Infra(err)
	}
	if exists == 0 {
		return nil, auctionerrors.ErrAuctionNotFound
	}

	var bids []models.Bid
	if err := s.db.Where("auction_id = ?", auctionID).
		Order("amount DESC").
		Preload("Bidder").
		Find(&bids).Error; err != nil {
		return nil, auctionerrors.Infra(err)
	}

	return bids, nil
}
