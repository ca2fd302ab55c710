package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/pagination"
	"magnate/internal/services"
)

// SimulationHandler handles tick execution and moderation overrides.
// All routes here require an admin session.
type SimulationHandler struct {
	tickService    services.TickServicer
	adminService   services.AdminServicer
	accountService services.AccountServicer
}

// NewSimulationHandler creates a new SimulationHandler.
func NewSimulationHandler(tickService services.TickServicer, adminService services.AdminServicer, accountService services.AccountServicer) *SimulationHandler {
	return &SimulationHandler{
		tickService:    tickService,
		adminService:   adminService,
		accountService: accountService,
	}
}

// ExecuteTick runs one simulation step on demand. The scheduled worker is
// the usual caller; this endpoint exists for operators.
func (h *SimulationHandler) ExecuteTick(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if _, err := h.accountService.RequireCapability(accountID, models.RoleAdmin); err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.tickService.ExecuteTick()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tick": record})
}

// ListTickRecords returns the tick audit trail, newest first.
func (h *SimulationHandler) ListTickRecords(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	records, err := h.tickService.GetTickRecords(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// SetStockPriceRequest represents the request payload for a price override
type SetStockPriceRequest struct {
	Price int64 `json:"price" binding:"required,gt=0"`
}

// SetStockPrice hard-sets a stock price.
func (h *SimulationHandler) SetStockPrice(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	stockID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetStockPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	stock, err := h.adminService.SetStockPrice(accountID, stockID, req.Price)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

// SetBalanceRequest represents the request payload for a balance override
type SetBalanceRequest struct {
	Balance int64 `json:"balance" binding:"min=0"`
}

// SetAccountBalance hard-sets an account balance, recording the delta as a
// mint or burn.
func (h *SimulationHandler) SetAccountBalance(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	targetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.adminService.SetAccountBalance(accountID, targetID, req.Balance)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}
