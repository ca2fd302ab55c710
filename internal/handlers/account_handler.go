package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "magnate/internal/errors"
	"magnate/internal/middleware"
	"magnate/internal/models"
	"magnate/internal/pagination"
	"magnate/internal/services"
)

// AccountHandler handles account and company requests.
type AccountHandler struct {
	accountService services.AccountServicer
	ledgerService  services.LedgerServicer
	starterBalance int64
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, ledgerService services.LedgerServicer, starterBalance int64) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		ledgerService:  ledgerService,
		starterBalance: starterBalance,
	}
}

// RegisterRequest represents the request payload for creating a player account
type RegisterRequest struct {
	Name string `json:"name" binding:"required,min=2,max=64"`
}

// Register creates a player account with the starter grant and returns a
// session token for it.
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.CreatePlayerAccount(req.Name, h.starterBalance)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := middleware.GenerateSessionToken(account)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account, "token": token})
}

// GetMe returns the authenticated account.
func (h *AccountHandler) GetMe(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// GetHoldings returns the authenticated account's positions with current
// prices and unrealized P/L.
func (h *AccountHandler) GetHoldings(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdings, err := h.accountService.GetHoldings(accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holdings": holdings})
}

// GetTransactions returns the authenticated account's ledger history.
func (h *AccountHandler) GetTransactions(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactions, err := h.ledgerService.GetAccountTransactions(accountID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// TransferRequest represents the request payload for a direct transfer
type TransferRequest struct {
	ToAccountID string `json:"to_account_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description" binding:"max=256"`
}

// CreateTransfer moves cash from the authenticated account to another account.
func (h *AccountHandler) CreateTransfer(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if req.ToAccountID == accountID {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot transfer to the same account"))
		return
	}

	description := req.Description
	if description == "" {
		description = "Direct transfer"
	}

	transaction, err := h.ledgerService.Transfer(accountID, req.ToAccountID, req.Amount, models.EntryKindCash, description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// CreateCompanyRequest represents the request payload for founding a company
type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required,min=2,max=64"`
}

// CreateCompany founds a company owned by the authenticated player. The
// creation fee is burned from the player's balance.
func (h *AccountHandler) CreateCompany(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	company, err := h.accountService.CreateCompany(accountID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"company": company})
}

// GetCompany returns one company by ID.
func (h *AccountHandler) GetCompany(c *gin.Context) {
	companyID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	company, err := h.accountService.GetCompanyByID(companyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"company": company})
}
