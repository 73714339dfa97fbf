// internal/tests/engine_test.go
package tests

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pawmarket/auction-backend/internal/auction"
	"github.com/pawmarket/auction-backend/internal/auctionerrors"
	"github.com/pawmarket/auction-backend/internal/config"
	"github.com/pawmarket/auction-backend/internal/models"
	"github.com/pawmarket/auction-backend/internal/services"
)

// EngineTestSuite exercises the bidding and settlement engine against a real
// postgres instance. Set TEST_DATABASE_URL to run it; the suite skips
// otherwise.
type EngineTestSuite struct {
	suite.Suite
	db         *gorm.DB
	cfg        *config.Config
	auctions   *services.AuctionService
	bids       *services.BidService
	settlement *services.SettlementService

	seller  models.User
	bidderA models.User
	bidderB models.User
}

func (s *EngineTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		s.T().Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.db = db

	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Auction{},
		&models.Bid{},
		&models.Notification{},
	))

	s.cfg = &config.Config{
		Auction: config.AuctionConfig{
			MaxActivePerSeller: 3,
			HighValueThreshold: 100_000,
			DedupWindowMinutes: 10,
			MinPhotos:          1,
			MaxPhotos:          5,
		},
	}

	notifications := services.NewNotificationService(db, s.cfg)
	s.settlement = services.NewSettlementService(db, notifications)
	s.auctions = services.NewAuctionService(db, s.cfg, s.settlement)
	s.bids = services.NewBidService(db, s.settlement, notifications)
}

func (s *EngineTestSuite) SetupTest() {
	for _, table := range []string{"notifications", "bids", "auctions", "users"} {
		s.Require().NoError(s.db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error)
	}

	s.seller = s.createUser("seller1")
	s.bidderA = s.createUser("bidder_a")
	s.bidderB = s.createUser("bidder_b")
}

func (s *EngineTestSuite) createUser(username string) models.User {
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		UserType: models.UserTypeBuyer,
		Status:   models.UserStatusActive,
		Phone:    "090-0000-0000",
	}
	s.Require().NoError(user.SetPassword("TestPass123!"))
	s.Require().NoError(s.db.Create(&user).Error)
	return user
}

// createAuctionRow inserts an auction directly, bypassing the creation
// guard, so engine tests can set arbitrary deadlines.
func (s *EngineTestSuite) createAuctionRow(startPrice int64, endAt time.Time) models.Auction {
	auc := models.Auction{
		SellerID:        s.seller.ID,
		Title:           "Shiba Inu pedigree pup",
		Description:     "Healthy pup with complete bloodline card and vaccinations.",
		Category:        "dogs",
		Photos:          []string{"https://cdn.example.com/p1.jpg"},
		StartPrice:      startPrice,
		CurrentPrice:    startPrice,
		MinBidIncrement: auction.IncrementFor(startPrice),
		EndAt:           endAt,
		Status:          models.AuctionStatusActive,
	}
	s.Require().NoError(s.db.Create(&auc).Error)
	return auc
}

func (s *EngineTestSuite) reload(id interface{}) models.Auction {
	var auc models.Auction
	s.Require().NoError(s.db.First(&auc, id).Error)
	return auc
}

func (s *EngineTestSuite) validCreateRequest() *services.CreateAuctionRequest {
	return &services.CreateAuctionRequest{
		Title:       "Maine Coon kitten, show quality",
		Description: "Raised at home, dewormed, comes with pedigree papers.",
		Category:    "cats",
		Photos:      []string{"https://cdn.example.com/c1.jpg", "https://cdn.example.com/c2.jpg"},
		StartPrice:  50_000,
		EndAt:       time.Now().Add(48 * time.Hour).Truncate(time.Second),
	}
}

// Creation guard

func (s *EngineTestSuite) TestCreateAuction() {
	created, err := s.auctions.CreateAuction(s.seller.ID, s.validCreateRequest())
	s.Require().NoError(err)

	s.Equal(models.AuctionStatusActive, created.Status)
	s.Equal(int64(50_000), created.CurrentPrice)
	s.Equal(auction.IncrementFor(50_000), created.MinBidIncrement)
	s.Nil(created.WinnerID)
}

func (s *EngineTestSuite) TestCreateAuctionDuplicateWindow() {
	req := s.validCreateRequest()

	first, err := s.auctions.CreateAuction(s.seller.ID, req)
	s.Require().NoError(err)

	_, err = s.auctions.CreateAuction(s.seller.ID, req)
	s.Require().ErrorIs(err, auctionerrors.ErrDuplicateAuction)

	var dup *auctionerrors.DuplicateError
	s.Require().ErrorAs(err, &dup)
	s.Equal(first.ID, dup.ExistingAuctionID)
}

func (s *EngineTestSuite) TestCreateAuctionActiveCap() {
	for i := 0; i < s.cfg.Auction.MaxActivePerSeller; i++ {
		req := s.validCreateRequest()
		req.Title = fmt.Sprintf("Listing number %d", i)
		_, err := s.auctions.CreateAuction(s.seller.ID, req)
		s.Require().NoError(err)
	}

	req := s.validCreateRequest()
	req.Title = "One listing too many"
	_, err := s.auctions.CreateAuction(s.seller.ID, req)
	s.ErrorIs(err, auctionerrors.ErrActiveAuctionCap)
}

func (s *EngineTestSuite) TestCreateAuctionHighValueNeedsContact() {
	bare := s.createUser("no_contact_seller")
	s.Require().NoError(s.db.Model(&bare).Update("phone", "").Error)

	req := s.validCreateRequest()
	req.StartPrice = 150_000

	_, err := s.auctions.CreateAuction(bare.ID, req)
	s.Require().ErrorIs(err, auctionerrors.ErrContactRequired)

	req.ContactPhone = "080-1111-2222"
	_, err = s.auctions.CreateAuction(bare.ID, req)
	s.NoError(err)
}

func (s *EngineTestSuite) TestCreateAuctionInvalidDuration() {
	req := s.validCreateRequest()
	req.EndAt = time.Now().Add(2 * time.Hour)

	_, err := s.auctions.CreateAuction(s.seller.ID, req)
	s.ErrorIs(err, auctionerrors.ErrInvalidDuration)
}

// Bid submission

func (s *EngineTestSuite) TestPlaceBidBelowFloorThenAtFloor() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 101_000)
	s.Require().ErrorIs(err, auctionerrors.ErrBidTooLow)

	result, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.Require().NoError(err)
	s.Equal(int64(102_000), result.CurrentPrice)
	s.False(result.Extended)

	reloaded := s.reload(auc.ID)
	s.Equal(int64(102_000), reloaded.CurrentPrice)
	s.Equal(auction.IncrementFor(102_000), reloaded.MinBidIncrement)
}

func (s *EngineTestSuite) TestPlaceBidExtendsDeadlineInsideWindow() {
	endAt := time.Now().Add(3 * time.Minute).Truncate(time.Second)
	auc := s.createAuctionRow(100_000, endAt)

	result, err := s.bids.PlaceBid(auc.ID, s.bidderB.ID, 102_000)
	s.Require().NoError(err)
	s.True(result.Extended)
	s.WithinDuration(endAt.Add(auction.ExtensionDuration), result.EndAt, time.Second)

	reloaded := s.reload(auc.ID)
	s.False(reloaded.EndAt.Before(endAt))
}

func (s *EngineTestSuite) TestPlaceBidSelfBidRejected() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	_, err := s.bids.PlaceBid(auc.ID, s.seller.ID, 102_000)
	s.ErrorIs(err, auctionerrors.ErrSelfBid)
}

func (s *EngineTestSuite) TestPlaceBidTopBidderCannotRebid() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.Require().NoError(err)

	_, err = s.bids.PlaceBid(auc.ID, s.bidderA.ID, 110_000)
	s.Require().ErrorIs(err, auctionerrors.ErrAlreadyTopBidder)

	// Once outbid, the earlier bidder may return.
	_, err = s.bids.PlaceBid(auc.ID, s.bidderB.ID, 104_000)
	s.Require().NoError(err)

	_, err = s.bids.PlaceBid(auc.ID, s.bidderA.ID, 106_000)
	s.NoError(err)
}

func (s *EngineTestSuite) TestPlaceBidOnExpiredAuctionSettlesFirst() {
	auc := s.createAuctionRow(100_000, time.Now().Add(-time.Minute))

	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.Require().ErrorIs(err, auctionerrors.ErrAuctionNotActive)

	reloaded := s.reload(auc.ID)
	s.Equal(models.AuctionStatusNoSale, reloaded.Status)
}

func (s *EngineTestSuite) TestPlaceBidSuspendedAccountRejected() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))
	s.Require().NoError(s.db.Model(&s.bidderA).Update("status", models.UserStatusSuspended).Error)

	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.ErrorIs(err, auctionerrors.ErrAccountNotActive)
}

func (s *EngineTestSuite) TestConcurrentBidsKeepPriceConsistent() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	const racers = 8
	bidders := make([]models.User, racers)
	for i := range bidders {
		bidders[i] = s.createUser(fmt.Sprintf("racer_%d", i))
	}

	var mu sync.Mutex
	var accepted []int64
	var rejections []error
	var wg sync.WaitGroup

	// All amounts clear the floor against the opening price, so every
	// rejection must come from losing the race, not from the initial read.
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := int64(102_000 + i*2_000)
			result, err := s.bids.PlaceBid(auc.ID, bidders[i].ID, amount)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejections = append(rejections, err)
				return
			}
			accepted = append(accepted, result.Bid.Amount)
		}(i)
	}
	wg.Wait()

	for _, err := range rejections {
		s.True(
			errors.Is(err, auctionerrors.ErrStaleBid) ||
				errors.Is(err, auctionerrors.ErrBidTooLow) ||
				errors.Is(err, auctionerrors.ErrAlreadyTopBidder),
			"unexpected rejection: %v", err)
	}

	s.Require().NotEmpty(accepted)
	var highest int64
	for _, amount := range accepted {
		if amount > highest {
			highest = amount
		}
	}

	reloaded := s.reload(auc.ID)
	s.Equal(highest, reloaded.CurrentPrice)

	var bidCount int64
	s.Require().NoError(s.db.Model(&models.Bid{}).
		Where("auction_id = ?", auc.ID).Count(&bidCount).Error)
	s.Equal(int64(len(accepted)), bidCount)
}

func (s *EngineTestSuite) TestEditRacingBidNeverOverwritesPrice() {
	for i := 0; i < 10; i++ {
		auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

		var wg sync.WaitGroup
		var bidErr, editErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, bidErr = s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
		}()
		go func() {
			defer wg.Done()
			_, editErr = s.auctions.EditAuction(auc.ID, s.seller.ID, &services.EditAuctionRequest{
				StartPrice: 90_000,
			})
		}()
		wg.Wait()

		if bidErr != nil {
			s.ErrorIs(bidErr, auctionerrors.ErrStaleBid)
		}
		if editErr != nil {
			s.True(
				errors.Is(editErr, auctionerrors.ErrEditAfterBids) ||
					errors.Is(editErr, auctionerrors.ErrAuctionNotActive),
				"unexpected edit error: %v", editErr)
		}

		var bidCount int64
		s.Require().NoError(s.db.Model(&models.Bid{}).
			Where("auction_id = ?", auc.ID).Count(&bidCount).Error)

		// A committed bid owns the price; an edit may only win when no bid
		// exists, in which case the price mirrors the new start price.
		reloaded := s.reload(auc.ID)
		if bidCount > 0 {
			s.Require().NoError(bidErr)
			s.Equal(int64(102_000), reloaded.CurrentPrice)
		} else {
			s.Require().NoError(editErr)
			s.Equal(int64(90_000), reloaded.CurrentPrice)
			s.Equal(int64(90_000), reloaded.StartPrice)
		}
	}
}

func (s *EngineTestSuite) TestPriceIsMonotone() {
	auc := s.createAuctionRow(10_000, time.Now().Add(48*time.Hour))

	amounts := []int64{11_000, 12_000, 15_000, 20_000}
	bidders := []models.User{s.bidderA, s.bidderB, s.bidderA, s.bidderB}

	var prev int64
	for i, amount := range amounts {
		result, err := s.bids.PlaceBid(auc.ID, bidders[i].ID, amount)
		s.Require().NoError(err)
		s.Greater(result.CurrentPrice, prev)
		prev = result.CurrentPrice
	}
}

// Settlement

func (s *EngineTestSuite) TestSweepNoBidsIsNoSale() {
	auc := s.createAuctionRow(100_000, time.Now().Add(-time.Minute))

	s.Require().NoError(s.settlement.SweepAuction(auc.ID))

	reloaded := s.reload(auc.ID)
	s.Equal(models.AuctionStatusNoSale, reloaded.Status)
	s.Nil(reloaded.WinnerID)
}

func (s *EngineTestSuite) TestSweepAssignsHighestBidder() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.Require().NoError(err)
	_, err = s.bids.PlaceBid(auc.ID, s.bidderB.ID, 108_000)
	s.Require().NoError(err)

	// Force expiry and settle.
	s.Require().NoError(s.db.Model(&models.Auction{}).
		Where("id = ?", auc.ID).
		Update("end_at", time.Now().Add(-time.Minute)).Error)
	s.Require().NoError(s.settlement.SweepAuction(auc.ID))

	reloaded := s.reload(auc.ID)
	s.Equal(models.AuctionStatusEnded, reloaded.Status)
	s.Require().NotNil(reloaded.WinnerID)
	s.Equal(s.bidderB.ID, *reloaded.WinnerID)
}

func (s *EngineTestSuite) TestSweepIsIdempotent() {
	auc := s.createAuctionRow(100_000, time.Now().Add(-time.Minute))

	s.Require().NoError(s.settlement.SweepAuction(auc.ID))
	first := s.reload(auc.ID)

	s.Require().NoError(s.settlement.SweepAuction(auc.ID))
	s.Require().NoError(s.settlement.SweepExpired())
	second := s.reload(auc.ID)

	s.Equal(first.Status, second.Status)
	s.Equal(first.WinnerID, second.WinnerID)
	s.Equal(first.UpdatedAt.Unix(), second.UpdatedAt.Unix())
}

func (s *EngineTestSuite) TestGetAuctionSettlesExpired() {
	auc := s.createAuctionRow(100_000, time.Now().Add(-time.Minute))

	fetched, err := s.auctions.GetAuction(auc.ID)
	s.Require().NoError(err)
	s.Equal(models.AuctionStatusNoSale, fetched.Status)
}

// Edits and cancellation

func (s *EngineTestSuite) TestEditAfterWindowRejected() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))
	s.Require().NoError(s.db.Model(&models.Auction{}).
		Where("id = ?", auc.ID).
		Update("created_at", time.Now().Add(-15*time.Minute)).Error)

	newTitle := "Corrected listing title"
	_, err := s.auctions.EditAuction(auc.ID, s.seller.ID, &services.EditAuctionRequest{Title: newTitle})
	s.ErrorIs(err, auctionerrors.ErrEditWindowClosed)
}

func (s *EngineTestSuite) TestEditAfterFirstBidRejected() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.Require().NoError(err)

	_, err = s.auctions.EditAuction(auc.ID, s.seller.ID, &services.EditAuctionRequest{Title: "Changed my mind"})
	s.ErrorIs(err, auctionerrors.ErrEditAfterBids)
}

func (s *EngineTestSuite) TestEditByNonOwnerRejected() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	_, err := s.auctions.EditAuction(auc.ID, s.bidderA.ID, &services.EditAuctionRequest{Title: "Not my listing"})
	s.ErrorIs(err, auctionerrors.ErrNotOwner)
}

func (s *EngineTestSuite) TestEditInsideWindowUpdatesPriceView() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	updated, err := s.auctions.EditAuction(auc.ID, s.seller.ID, &services.EditAuctionRequest{
		StartPrice: 120_000,
	})
	s.Require().NoError(err)
	s.Equal(int64(120_000), updated.StartPrice)
	s.Equal(int64(120_000), updated.CurrentPrice)
	s.Equal(auction.IncrementFor(120_000), updated.MinBidIncrement)
}

func (s *EngineTestSuite) TestCancelInsideWindow() {
	auc := s.createAuctionRow(100_000, time.Now().Add(48*time.Hour))

	s.Require().NoError(s.auctions.CancelAuction(auc.ID, s.seller.ID))

	reloaded := s.reload(auc.ID)
	s.Equal(models.AuctionStatusCancelled, reloaded.Status)

	// Terminal state: bids are refused from here on.
	_, err := s.bids.PlaceBid(auc.ID, s.bidderA.ID, 102_000)
	s.ErrorIs(err, auctionerrors.ErrAuctionNotActive)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
