package services

import (
	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/locks"
	"magnate/internal/logger"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pricing"
)

// adminService implements moderation overrides. Overrides bypass trade
// validation but never the core invariants: prices stay at or above the
// floor and balances stay in the safe range. Every override is logged with
// the acting admin.
type adminService struct {
	db         *gorm.DB
	accounts   AccountServicer
	assetLocks *locks.KeyedMutex
}

// NewAdminService creates a new AdminServicer.
func NewAdminService(db *gorm.DB, accounts AccountServicer, assetLocks *locks.KeyedMutex) AdminServicer {
	return &adminService{db: db, accounts: accounts, assetLocks: assetLocks}
}

// SetStockPrice hard-sets a stock's price and re-anchors the pricing model
// there, so the next ticks do not immediately revert the correction.
func (s *adminService) SetStockPrice(actorID, stockID string, price int64) (*models.Stock, error) {
	actor, err := s.accounts.RequireCapability(actorID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if price < pricing.MinPrice || !money.Valid(price) {
		return nil, apperrors.ErrInvalidAmount
	}

	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindStock, stockID))
	defer unlock()

	var stock *models.Stock
	err = s.db.Transaction(func(tx *gorm.DB) error {
		stock, err = loadStock(tx, stockID)
		if err != nil {
			return err
		}
		updates := map[string]any{
			"previous_price": stock.Price,
			"price":          price,
			"anchor_price":   price,
		}
		if txErr := tx.Model(stock).Updates(updates).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("admin price override",
		"admin", actor.ID, "stock", stock.ID, "ticker", stock.Ticker, "price", price)
	return stock, nil
}

// SetAccountBalance hard-sets an account balance. The delta is recorded as
// a mint or burn so the ledger history stays complete.
func (s *adminService) SetAccountBalance(actorID, accountID string, balance int64) (*models.Account, error) {
	actor, err := s.accounts.RequireCapability(actorID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if balance < 0 || !money.Valid(balance) {
		return nil, apperrors.ErrInvalidAmount
	}

	var account *models.Account
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, err = lockAccount(tx, accountID)
		if err != nil {
			return err
		}

		delta := balance - account.Balance
		if delta == 0 {
			return nil
		}

		if txErr := tx.Model(account).Update("balance", balance).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		entry := &models.Transaction{
			Amount:      delta,
			EntryKind:   models.EntryKindCash,
			Description: "Admin balance override",
		}
		if delta > 0 {
			entry.ToAccountID = &account.ID
		} else {
			entry.Amount = -delta
			entry.FromAccountID = &account.ID
		}
		if txErr := tx.Create(entry).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		account.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("admin balance override",
		"admin", actor.ID, "account", accountID, "balance", balance)
	return account, nil
}
