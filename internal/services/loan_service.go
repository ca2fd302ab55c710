package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pagination"
)

// loanService issues loans, takes repayments, and accrues per-tick interest.
// Issued cash is minted and repayments are burned, so loan money enters and
// leaves the economy through the ledger like everything else.
type loanService struct {
	db          *gorm.DB
	ledger      LedgerServicer
	ceiling     int64 // max combined remaining balance per account
	ticksPerDay int
}

// NewLoanService creates a new LoanServicer.
func NewLoanService(db *gorm.DB, ledger LedgerServicer, ceiling int64, ticksPerDay int) LoanServicer {
	if ticksPerDay <= 0 {
		ticksPerDay = 1
	}
	return &loanService{db: db, ledger: ledger, ceiling: ceiling, ticksPerDay: ticksPerDay}
}

// CreateLoan issues a new loan and mints the principal onto the account.
// The account's combined outstanding debt may not exceed the ceiling.
func (s *loanService) CreateLoan(accountID string, principal int64, dailyRate float64) (*models.Loan, error) {
	if principal <= 0 || !money.Valid(principal) {
		return nil, apperrors.ErrInvalidAmount
	}
	if dailyRate < 0 || dailyRate > 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "daily rate must be between 0 and 1")
	}

	var loan *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var outstanding int64
		row := tx.Model(&models.Loan{}).
			Where("account_id = ? AND status = ?", accountID, models.LoanStatusActive).
			Select("COALESCE(SUM(remaining_balance), 0)").Row()
		if err := row.Scan(&outstanding); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if newDebt, err := money.Add(outstanding, principal); err != nil || newDebt > s.ceiling {
			return apperrors.ErrLoanTooLarge
		}

		loan = &models.Loan{
			AccountID:        accountID,
			Principal:        principal,
			RemainingBalance: principal,
			DailyRate:        dailyRate,
			Status:           models.LoanStatusActive,
			LastInterestAt:   time.Now(),
		}
		if txErr := tx.Create(loan).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		_, txErr := s.ledger.MintTx(tx, accountID, principal, models.EntryKindCash, "Loan issued")
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RepayLoan burns cash from the account against the loan balance. Paying
// more than remains is clamped to the remainder; the loan flips to paid
// exactly when the balance hits zero.
func (s *loanService) RepayLoan(accountID, loanID string, amount int64) (*models.Loan, error) {
	if amount <= 0 || !money.Valid(amount) {
		return nil, apperrors.ErrInvalidAmount
	}

	var loan *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		loan, err = loadLoan(tx, loanID)
		if err != nil {
			return err
		}
		if loan.AccountID != accountID {
			return apperrors.ErrPermissionDenied
		}
		if loan.Status != models.LoanStatusActive {
			return apperrors.ErrLoanNotOpen
		}

		payment := amount
		if payment > loan.RemainingBalance {
			payment = loan.RemainingBalance
		}

		if _, txErr := s.ledger.BurnTx(tx, accountID, payment, models.EntryKindCash, "Loan repayment"); txErr != nil {
			return txErr
		}

		loan.RemainingBalance -= payment
		updates := map[string]any{"remaining_balance": loan.RemainingBalance}
		if loan.RemainingBalance == 0 {
			loan.Status = models.LoanStatusPaid
			updates["status"] = models.LoanStatusPaid
		}
		if txErr := tx.Model(loan).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ApplyLoanInterest compounds one tick of interest onto a loan. The per-tick
// rate is the daily rate split evenly across the day's ticks; interest is
// floored to whole minor units so tiny balances can accrue zero.
func (s *loanService) ApplyLoanInterest(loanID string) (*models.Loan, error) {
	var loan *models.Loan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		loan, err = loadLoan(tx, loanID)
		if err != nil {
			return err
		}
		return s.accrueTx(tx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// AccrueAll applies one tick of interest to every active loan. Each loan
// accrues in its own transaction so one bad row cannot stall the rest.
func (s *loanService) AccrueAll() (int, error) {
	var ids []string
	if err := s.db.Model(&models.Loan{}).
		Where("status = ?", models.LoanStatusActive).
		Pluck("id", &ids).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	accrued := 0
	var failed []string
	for _, id := range ids {
		if _, err := s.ApplyLoanInterest(id); err != nil {
			failed = append(failed, fmt.Sprintf("loan %s: %v", id, err))
			continue
		}
		accrued++
	}
	if len(failed) > 0 {
		return accrued, apperrors.Wrap(apperrors.ErrInternalServer, errors.New(strings.Join(failed, "; ")))
	}
	return accrued, nil
}

// GetAccountLoans returns an account's loans, newest first.
func (s *loanService) GetAccountLoans(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Loan], error) {
	page.Defaults()

	base := s.db.Model(&models.Loan{}).Where("account_id = ?", accountID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var loans []models.Loan
	if err := base.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&loans).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(loans, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *loanService) accrueTx(tx *gorm.DB, loan *models.Loan) error {
	if loan.Status != models.LoanStatusActive {
		return apperrors.ErrLoanNotOpen
	}

	interest, err := money.Fraction(loan.RemainingBalance, loan.DailyRate/float64(s.ticksPerDay))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}
	if interest == 0 {
		return nil
	}

	newBalance, err := money.Add(loan.RemainingBalance, interest)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}
	newAccrued, err := money.Add(loan.AccruedInterest, interest)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}

	loan.RemainingBalance = newBalance
	loan.AccruedInterest = newAccrued
	loan.LastInterestAt = time.Now()

	updates := map[string]any{
		"remaining_balance": newBalance,
		"accrued_interest":  newAccrued,
		"last_interest_at":  loan.LastInterestAt,
	}
	if err := tx.Model(loan).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func loadLoan(tx *gorm.DB, loanID string) (*models.Loan, error) {
	var loan models.Loan
	if err := forUpdate(tx).First(&loan, "id = ?", loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLoanNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &loan, nil
}
