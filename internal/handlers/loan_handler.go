package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "magnate/internal/errors"
	"magnate/internal/pagination"
	"magnate/internal/services"
)

// LoanHandler handles loan issuance and repayment.
type LoanHandler struct {
	loanService services.LoanServicer
	// dailyRate is the house rate applied to every new loan.
	dailyRate float64
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanService services.LoanServicer, dailyRate float64) *LoanHandler {
	return &LoanHandler{loanService: loanService, dailyRate: dailyRate}
}

// CreateLoanRequest represents the request payload for taking a loan
type CreateLoanRequest struct {
	Principal int64 `json:"principal" binding:"required,gt=0"`
}

// CreateLoan issues a loan to the authenticated account at the house rate.
func (h *LoanHandler) CreateLoan(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	loan, err := h.loanService.CreateLoan(accountID, req.Principal, h.dailyRate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"loan": loan})
}

// RepayLoanRequest represents the request payload for a repayment
type RepayLoanRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// RepayLoan pays down the loan in the path. Overpayment is clamped to the
// remaining balance.
func (h *LoanHandler) RepayLoan(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	loanID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RepayLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	loan, err := h.loanService.RepayLoan(accountID, loanID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"loan": loan})
}

// ListLoans returns the authenticated account's loans.
func (h *LoanHandler) ListLoans(c *gin.Context) {
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

	loans, err := h.loanService.GetAccountLoans(accountID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, loans)
}
