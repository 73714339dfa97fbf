// internal/services/auction_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/pawmarket/auction-backend/internal/auction"
	"github.com/pawmarket/auction-backend/internal/auctionerrors"
	"github.com/pawmarket/auction-backend/internal/config"
	"github.com/pawmarket/auction-backend/internal/models"
	"github.com/pawmarket/auction-backend/internal/utils"
)

type AuctionService struct {
	db                *gorm.DB
	config            *config.Config
	settlementService *SettlementService
}

type CreateAuctionRequest struct {
	Title        string    `json:"title" validate:"required,min=3,max=255"`
	Description  string    `json:"description" validate:"required,min=10"`
	Category     string    `json:"category" validate:"required,max=100"`
	Photos       []string  `json:"photos" validate:"required,dive,url"`
	StartPrice   int64     `json:"start_price" validate:"required,min=1"`
	EndAt        time.Time `json:"end_at" validate:"required"`
	ContactPhone string    `json:"contact_phone,omitempty" validate:"omitempty,max=30"`
	ContactEmail string    `json:"contact_email,omitempty" validate:"omitempty,email"`
	ProfileURL   string    `json:"profile_url,omitempty" validate:"omitempty,url"`
}

type EditAuctionRequest struct {
	Title        string     `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description  string     `json:"description,omitempty" validate:"omitempty,min=10"`
	Category     string     `json:"category,omitempty" validate:"omitempty,max=100"`
	Photos       []string   `json:"photos,omitempty" validate:"omitempty,dive,url"`
	StartPrice   int64      `json:"start_price,omitempty" validate:"omitempty,min=1"`
	EndAt        *time.Time `json:"end_at,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty" validate:"omitempty,max=30"`
	ContactEmail string     `json:"contact_email,omitempty" validate:"omitempty,email"`
}

type AuctionSearchParams struct {
	utils.PaginationParams
	Category string                `json:"category,omitempty"`
	Search   string                `json:"search,omitempty"`
	SellerID *uuid.UUID            `json:"seller_id,omitempty"`
	Status   *models.AuctionStatus `json:"status,omitempty"`
	PriceMin *int64                `json:"price_min,omitempty"`
	PriceMax *int64                `json:"price_max,omitempty"`
}

func NewAuctionService(db *gorm.DB, config *config.Config, settlementService *SettlementService) *AuctionService {
	return &AuctionService{
		db:                db,
		config:            config,
		settlementService: settlementService,
	}
}

// CreateAuction runs the creation guard and inserts the listing. The guard
// checks are a single advisory read each followed by the insert; a true race
// between two creations from the same seller resolves via the cap check
// failing on its next read, which is acceptable for a low-frequency,
// seller-scoped action.
func (s *AuctionService) CreateAuction(sellerID uuid.UUID, req *CreateAuctionRequest) (*models.Auction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var seller models.User
	if err := s.db.First(&seller, sellerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerrors.ErrAccountNotActive
		}
		return nil, auctionerrors.Infra(err)
	}
	if seller.Status != models.UserStatusActive {
		return nil, auctionerrors.ErrAccountNotActive
	}

	if len(req.Photos) < s.config.Auction.MinPhotos || len(req.Photos) > s.config.Auction.MaxPhotos {
		return nil, auctionerrors.ErrPhotoCount
	}

	if req.StartPrice < auction.MinStartPrice {
		return nil, auctionerrors.ErrStartPriceTooLow
	}

	now := time.Now()
	if !auction.IsValidDuration(req.EndAt, now) {
		return nil, auctionerrors.ErrInvalidDuration
	}

	// Per-seller cap on concurrently active auctions.
	var activeCount int64
	if err := s.db.Model(&models.Auction{}).
		Where("seller_id = ? AND status = ?", sellerID, models.AuctionStatusActive).
		Count(&activeCount).Error; err != nil {
		return nil, auctionerrors.Infra(err)
	}
	if activeCount >= int64(s.config.Auction.MaxActivePerSeller) {
		return nil, auctionerrors.ErrActiveAuctionCap
	}

	// High value listings must be reachable outside the platform.
	if req.StartPrice >= s.config.Auction.HighValueThreshold {
		hasContact := req.ContactPhone != "" || req.ContactEmail != "" || req.ProfileURL != "" ||
			seller.HasContactChannel()
		if !hasContact {
			return nil, auctionerrors.ErrContactRequired
		}
	}

	// Retried form submissions (double click, network retry) must not create
	// twin listings. An identical payload inside the trailing window is
	// answered with the existing auction's ID so the client can redirect.
	if existing, err := s.findRecentDuplicate(sellerID, req, now); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &auctionerrors.DuplicateError{ExistingAuctionID: existing.ID}
	}

	auc := &models.Auction{
		SellerID:        sellerID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Photos:          pq.StringArray(req.Photos),
		StartPrice:      req.StartPrice,
		CurrentPrice:    req.StartPrice,
		MinBidIncrement: auction.IncrementFor(req.StartPrice),
		EndAt:           req.EndAt,
		Status:          models.AuctionStatusActive,
		ContactPhone:    req.ContactPhone,
		ContactEmail:    req.ContactEmail,
		ProfileURL:      req.ProfileURL,
	}

	if err := s.db.Create(auc).Error; err != nil {
		return nil, auctionerrors.Infra(err)
	}

	s.db.Preload("Seller").First(auc, auc.ID)

	return auc, nil
}

func (s *AuctionService) findRecentDuplicate(sellerID uuid.UUID, req *CreateAuctionRequest, now time.Time) (*models.Auction, error) {
	windowStart := now.Add(-time.Duration(s.config.Auction.DedupWindowMinutes) * time.Minute)

	var candidates []models.Auction
	if err := s.db.Where(
		"seller_id = ? AND created_at >= ? AND title = ? AND description = ? AND category = ? AND start_price = ? AND end_at = ? AND contact_phone = ? AND contact_email = ? AND profile_url = ?",
		sellerID, windowStart, req.Title, req.Description, req.Category,
		req.StartPrice, req.EndAt, req.ContactPhone, req.ContactEmail, req.ProfileURL,
	).Find(&candidates).Error; err != nil {
		return nil, auctionerrors.Infra(err)
	}

	for i := range candidates {
		if samePhotos(candidates[i].Photos, req.Photos) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func samePhotos(a pq.StringArray, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GetAuction settles the auction if expired and returns it with seller,
// winner and bid history loaded.
func (s *AuctionService) GetAuction(auctionID uuid.UUID) (*models.Auction, error) {
	if err := s.settlementService.SweepAuction(auctionID); err != nil {
		return nil, err
	}

	var auc models.Auction
	if err := s.db.Preload("Seller").Preload("Winner").
		Preload("Bids", func(db *gorm.DB) *gorm.DB {
			return db.Order("bids.amount DESC")
		}).
		First(&auc, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerrors.ErrAuctionNotFound
		}
		return nil, auctionerrors.Infra(err)
	}

	return &auc, nil
}

// EditAuction applies an owner edit while edit eligibility still holds.
func (s *AuctionService) EditAuction(auctionID, editorID uuid.UUID, req *EditAuctionRequest) (*models.Auction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.settlementService.SweepAuction(auctionID); err != nil {
		return nil, err
	}

	var auc models.Auction
	if err := s.db.First(&auc, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auctionerrors.ErrAuctionNotFound
		}
		return nil, auctionerrors.Infra(err)
	}

	now := time.Now()
	if err := s.checkEditEligibility(&auc, editorID, now); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Photos != nil {
		if len(req.Photos) < s.config.Auction.MinPhotos || len(req.Photos) > s.config.Auction.MaxPhotos {
			return nil, auctionerrors.ErrPhotoCount
		}
		updates["photos"] = pq.StringArray(req.Photos)
	}
	if req.StartPrice > 0 {
		if req.StartPrice < auction.MinStartPrice {
			return nil, auctionerrors.ErrStartPriceTooLow
		}
		// Eligibility guarantees zero bids, so the price view still mirrors
		// the start price.
		updates["start_price"] = req.StartPrice
		updates["current_price"] = req.StartPrice
		updates["min_bid_increment"] = auction.IncrementFor(req.StartPrice)
	}
	if req.EndAt != nil {
		// Duration bounds are measured from now, same as at creation.
		if !auction.IsValidDuration(*req.EndAt, now) {
			return nil, auctionerrors.ErrInvalidDuration
		}
		updates["end_at"] = *req.EndAt
	}
	if req.ContactPhone != "" {
		updates["contact_phone"] = req.ContactPhone
	}
	if req.ContactEmail != "" {
		updates["contact_email"] = req.ContactEmail
	}

	if len(updates) > 0 {
		// Conditioned on status and the price read above: a racing sweep
		// cannot mutate a settled auction, and a bid committing after the
		// eligibility read makes this miss instead of overwriting the
		// accepted price.
		result := s.db.Model(&models.Auction{}).
			Where("id = ? AND status = ? AND current_price = ?",
				auctionID, models.AuctionStatusActive, auc.CurrentPrice).
			Updates(updates)
		if result.Error != nil {
			return nil, auctionerrors.Infra(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, auctionerrors.ErrAuctionNotActive
		}
	}

	s.db.Preload("Seller").First(&auc, auctionID)

	return &auc, nil
}

// CancelAuction is the owner-initiated ACTIVE to CANCELLED transition; it
// obeys the same eligibility rule as edits.
func (s *AuctionService) CancelAuction(auctionID, ownerID uuid.UUID) error {
	if err := s.settlementService.SweepAuction(auctionID); err != nil {
		return err
	}

	var auc models.Auction
	if err := s.db.First(&auc, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auctionerrors.ErrAuctionNotFound
		}
		return auctionerrors.Infra(err)
	}

	now := time.Now()
	if err := s.checkEditEligibility(&auc, ownerID, now); err != nil {
		return err
	}

	// Same price condition as edits: a bid landing after the eligibility
	// read must not be cancelled away.
	result := s.db.Model(&models.Auction{}).
		Where("id = ? AND status = ? AND current_price = ?",
			auctionID, models.AuctionStatusActive, auc.CurrentPrice).
		Update("status", models.AuctionStatusCancelled)
	if result.Error != nil {
		return auctionerrors.Infra(result.Error)
	}
	if result.RowsAffected == 0 {
		return auctionerrors.ErrAuctionNotActive
	}

	return nil
}

// checkEditEligibility wraps auction.CanEdit and, on refusal, reports which
// rule failed, since the UI shows different remediation text per rule.
func (s *AuctionService) checkEditEligibility(auc *models.Auction, editorID uuid.UUID, now time.Time) error {
	var bidCount int64
	if err := s.db.Model(&models.Bid{}).Where("auction_id = ?", auc.ID).Count(&bidCount).Error; err != nil {
		return auctionerrors.Infra(err)
	}

	if auction.CanEdit(auction.EditRequest{
		IsOwner:   auc.SellerID == editorID,
		CreatedAt: auc.CreatedAt,
		Status:    auc.Status,
		BidCount:  bidCount,
	}, now) {
		return nil
	}

	switch {
	case auc.SellerID != editorID:
		return auctionerrors.ErrNotOwner
	case auc.Status != models.AuctionStatusActive:
		return auctionerrors.ErrAuctionNotActive
	case bidCount > 0:
		return auctionerrors.ErrEditAfterBids
	default:
		return auctionerrors.ErrEditWindowClosed
	}
}

// SearchAuctions lists auctions with filters and pagination. Expired
// auctions are settled first so listings never show stale active records.
func (s *AuctionService) SearchAuctions(params AuctionSearchParams) ([]models.Auction, int64, error) {
	if err := s.settlementService.SweepExpired(); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Auction{}).Preload("Seller")

	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	} else {
		// Default to active listings only
		query = query.Where("status = ?", models.AuctionStatusActive)
	}

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	if params.PriceMin != nil {
		query = query.Where("current_price >= ?", *params.PriceMin)
	}

	if params.PriceMax != nil {
		query = query.Where("current_price <= ?", *params.PriceMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, auctionerrors.Infra(err)
	}

	query = utils.ApplySort(query, params.PaginationParams)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var auctions []models.Auction
	if err := query.Find(&auctions).Error; err != nil {
		return nil, 0, auctionerrors.Infra(err)
	}

	return auctions, total, nil
}
