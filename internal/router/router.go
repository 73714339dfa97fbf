// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pawmarket/auction-backend/internal/config"
	"github.com/pawmarket/auction-backend/internal/handlers"
	"github.com/pawmarket/auction-backend/internal/middleware"
	"github.com/pawmarket/auction-backend/internal/services"
	"github.com/pawmarket/auction-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	settlementService := services.NewSettlementService(db, notificationService)
	auctionService := services.NewAuctionService(db, cfg, settlementService)
	bidService := services.NewBidService(db, settlementService, notificationService)
	storageService, _ := services.NewStorageService(cfg)

	// Initialize handlers
	auctionHandler := handlers.NewAuctionHandler(auctionService, bidService, storageService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		auctions := v1.Group("/auctions")
		{
			auctions.GET("", middleware.OptionalAuth(), auctionHandler.ListAuctions)
			auctions.GET("/:id", middleware.OptionalAuth(), auctionHandler.GetAuction)
			auctions.GET("/:id/bids", middleware.OptionalAuth(), auctionHandler.ListBids)

			auctions.POST("", middleware.AuthRequired(), auctionHandler.CreateAuction)
			auctions.PUT("/:id", middleware.AuthRequired(), auctionHandler.UpdateAuction)
			auctions.DELETE("/:id", middleware.AuthRequired(), auctionHandler.CancelAuction)
			auctions.POST("/:id/bids", middleware.AuthRequired(), middleware.BidRateLimit(), auctionHandler.PlaceBid)
			auctions.POST("/photos", middleware.AuthRequired(), middleware.UploadRateLimit(), auctionHandler.UploadPhoto)
		}
	}

	return r
}
