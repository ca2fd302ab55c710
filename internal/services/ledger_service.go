package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pagination"
)

// ledgerService performs atomic balance transfers and records the
// double-entry transaction history. System mint/burn entries are the only
// operations that move cash in or out of the economy; everything else
// conserves it.
type ledgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB) LedgerServicer {
	return &ledgerService{db: db}
}

// Transfer moves amount from one account to another in a single atomic unit.
func (s *ledgerService) Transfer(fromID, toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.TransferTx(tx, fromID, toID, amount, kind, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TransferTx is Transfer running inside an existing transaction.
//
// A source account of kind system skips the balance check: the exchange
// float is the market-making counterparty and may run a book deficit.
// Player and company balances can never go negative.
func (s *ledgerService) TransferTx(tx *gorm.DB, fromID, toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	from, err := lockAccount(tx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := lockAccount(tx, toID)
	if err != nil {
		return nil, err
	}

	if from.Kind != models.AccountKindSystem && from.Balance < amount {
		return nil, apperrors.ErrInsufficientBalance
	}

	newTo, err := money.Add(to.Balance, amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}

	if err := tx.Model(from).Update("balance", from.Balance-amount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Model(to).Update("balance", newTo).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.appendEntry(tx, &from.ID, &to.ID, amount, kind, description)
}

// Mint credits an account with newly created cash (loan issuance, bot
// purchases). Privileged: callers are trusted internal services.
func (s *ledgerService) Mint(toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.MintTx(tx, toID, amount, kind, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MintTx is Mint running inside an existing transaction.
func (s *ledgerService) MintTx(tx *gorm.DB, toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	to, err := lockAccount(tx, toID)
	if err != nil {
		return nil, err
	}

	newBalance, err := money.Add(to.Balance, amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}
	if err := tx.Model(to).Update("balance", newBalance).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.appendEntry(tx, nil, &to.ID, amount, kind, description)
}

// Burn removes cash from an account (creation fees, loan repayment).
func (s *ledgerService) Burn(fromID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.BurnTx(tx, fromID, amount, kind, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BurnTx is Burn running inside an existing transaction.
func (s *ledgerService) BurnTx(tx *gorm.DB, fromID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	from, err := lockAccount(tx, fromID)
	if err != nil {
		return nil, err
	}

	if from.Balance < amount {
		return nil, apperrors.ErrInsufficientBalance
	}
	if err := tx.Model(from).Update("balance", from.Balance-amount).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.appendEntry(tx, &from.ID, nil, amount, kind, description)
}

// GetAccountTransactions returns the ledger history touching an account,
// newest first.
func (s *ledgerService) GetAccountTransactions(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).
		Where("from_account_id = ? OR to_account_id = ?", accountID, accountID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *ledgerService) appendEntry(tx *gorm.DB, fromID, toID *string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error) {
	entry := &models.Transaction{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		EntryKind:     kind,
		Description:   description,
		CreatedAt:     time.Now(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry, nil
}

// validateAmount enforces the shared amount invariant: strictly positive
// and within the safe integer range.
func validateAmount(amount int64) error {
	if amount <= 0 {
		return apperrors.ErrInvalidAmount
	}
	if !money.Valid(amount) {
		return apperrors.ErrOverflowDetected
	}
	return nil
}

// lockAccount loads an account for update inside a transaction, holding a
// row-level write lock until the transaction ends so the API and worker
// processes cannot interleave balance updates on the same row.
func lockAccount(tx *gorm.DB, accountID string) (*models.Account, error) {
	var account models.Account
	if err := forUpdate(tx).First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}
