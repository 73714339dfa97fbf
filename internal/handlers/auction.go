// internal/handlers/auction.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pawmarket/auction-backend/internal/auction"
	"github.com/pawmarket/auction-backend/internal/auctionerrors"
	"github.com/pawmarket/auction-backend/internal/models"
	"github.com/pawmarket/auction-backend/internal/services"
	"github.com/pawmarket/auction-backend/internal/utils"
)

type AuctionHandler struct {
	auctionService *services.AuctionService
	bidService     *services.BidService
	storageService *services.StorageService
}

func NewAuctionHandler(auctionService *services.AuctionService, bidService *services.BidService, storageService *services.StorageService) *AuctionHandler {
	return &AuctionHandler{
		auctionService: auctionService,
		bidService:     bidService,
		storageService: storageService,
	}
}

// GET /auctions
func (h *AuctionHandler) ListAuctions(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.AuctionSearchParams{
		PaginationParams: params,
		Category:         c.Query("category"),
		Search:           c.Query("search"),
	}

	if status := c.Query("status"); status != "" {
		auctionStatus := models.AuctionStatus(status)
		searchParams.Status = &auctionStatus
	}

	if sellerIDStr := c.Query("seller_id"); sellerIDStr != "" {
		if sellerID, err := uuid.Parse(sellerIDStr); err == nil {
			searchParams.SellerID = &sellerID
		}
	}

	if priceMin, ok := parseInt64Query(c, "price_min"); ok {
		searchParams.PriceMin = &priceMin
	}
	if priceMax, ok := parseInt64Query(c, "price_max"); ok {
		searchParams.PriceMax = &priceMax
	}

	auctions, total, err := h.auctionService.SearchAuctions(searchParams)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(auctions, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /auctions
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	created, err := h.auctionService.CreateAuction(sellerID, &req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"auction": created,
	})
}

// GET /auctions/:id
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auctionID, ok := h.auctionIDParam(c)
	if !ok {
		return
	}

	auc, err := h.auctionService.GetAuction(auctionID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"auction": auc,
	})
}

// PUT /auctions/:id
func (h *AuctionHandler) UpdateAuction(c *gin.Context) {
	auctionID, ok := h.auctionIDParam(c)
	if !ok {
		return
	}

	editorID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.EditAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	updated, err := h.auctionService.EditAuction(auctionID, editorID, &req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"auction": updated,
	})
}

// DELETE /auctions/:id
func (h *AuctionHandler) CancelAuction(c *gin.Context) {
	auctionID, ok := h.auctionIDParam(c)
	if !ok {
		return
	}

	ownerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.auctionService.CancelAuction(auctionID, ownerID); err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "Auction cancelled",
	})
}

type placeBidRequest struct {
	Amount json.Number `json:"amount" binding:"required"`
}

// POST /auctions/:id/bids
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	auctionID, ok := h.auctionIDParam(c)
	if !ok {
		return
	}

	bidderID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	amount, err := auction.ParseAmount(req.Amount)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	result, err := h.bidService.PlaceBid(auctionID, bidderID, amount)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"bid":           result.Bid,
		"current_price": result.CurrentPrice,
		"end_at":        result.EndAt,
		"extended":      result.Extended,
	})
}

// GET /auctions/:id/bids
func (h *AuctionHandler) ListBids(c *gin.Context) {
	auctionID, ok := h.auctionIDParam(c)
	if !ok {
		return
	}

	bids, err := h.bidService.ListBids(auctionID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"bids": bids,
	})
}

// POST /auctions/photos
func (h *AuctionHandler) UploadPhoto(c *gin.Context) {
	if _, ok := h.currentUserID(c); !ok {
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		utils.BadRequestResponse(c, "Photo file is required", err.Error())
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadAuctionPhoto(file, header)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"photo": result,
	})
}

// Helpers

func (h *AuctionHandler) auctionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid auction ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *AuctionHandler) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return userID, true
}

// respondServiceError maps the engine's error taxonomy onto HTTP statuses.
// State conflicts answer 409 with a retryable flag so clients know a fresh
// read plus resubmit may succeed.
func (h *AuctionHandler) respondServiceError(c *gin.Context, err error) {
	var dup *auctionerrors.DuplicateError
	if errors.As(err, &dup) {
		utils.ConflictResponse(c, auctionerrors.CodeOf(err), err.Error(), gin.H{
			"existing_auction_id": dup.ExistingAuctionID,
		})
		return
	}

	code := auctionerrors.CodeOf(err)
	switch auctionerrors.KindOf(err) {
	case auctionerrors.KindUnauthorized:
		utils.ErrorResponse(c, http.StatusForbidden, code, err.Error(), nil)
	case auctionerrors.KindValidation:
		utils.ErrorResponse(c, http.StatusBadRequest, code, err.Error(), nil)
	case auctionerrors.KindConflict:
		utils.ConflictResponse(c, code, err.Error(), nil)
	case auctionerrors.KindNotFound:
		utils.NotFoundResponse(c, err.Error())
	case auctionerrors.KindStateConflict:
		utils.ErrorResponse(c, http.StatusConflict, code, err.Error(), gin.H{
			"retryable": true,
		})
	default:
		utils.InternalErrorResponse(c, "")
	}
}

func parseInt64Query(c *gin.Context, key string) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
