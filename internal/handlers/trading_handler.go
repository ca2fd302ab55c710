package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/services"
)

// TradingHandler handles buy and sell orders.
type TradingHandler struct {
	tradingService services.TradingServicer
}

// NewTradingHandler creates a new TradingHandler.
func NewTradingHandler(tradingService services.TradingServicer) *TradingHandler {
	return &TradingHandler{tradingService: tradingService}
}

// BuyRequest sizes a purchase by unit quantity or by cash to spend.
// Exactly one of the two must be set.
type BuyRequest struct {
	Quantity    float64 `json:"quantity" binding:"omitempty,gt=0"`
	SpendAmount int64   `json:"spend_amount" binding:"omitempty,gt=0"`
}

// SellRequest sizes a sale by unit quantity.
type SellRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// Buy executes a purchase of the asset in the path.
func (h *TradingHandler) Buy(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var asset assetQuery
	if err := c.ShouldBindUri(&asset); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order := services.TradeOrder{Quantity: req.Quantity, SpendAmount: req.SpendAmount}

	var trade *models.Trade
	switch models.AssetKind(asset.Kind) {
	case models.AssetKindStock:
		trade, err = h.tradingService.BuyStock(accountID, asset.ID, order)
	case models.AssetKindCrypto:
		trade, err = h.tradingService.BuyCrypto(accountID, asset.ID, order)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"trade": trade})
}

// Sell executes a sale of the asset in the path.
func (h *TradingHandler) Sell(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var asset assetQuery
	if err := c.ShouldBindUri(&asset); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var req SellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var trade *models.Trade
	switch models.AssetKind(asset.Kind) {
	case models.AssetKindStock:
		trade, err = h.tradingService.SellStock(accountID, asset.ID, req.Quantity)
	case models.AssetKindCrypto:
		trade, err = h.tradingService.SellCrypto(accountID, asset.ID, req.Quantity)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"trade": trade})
}
