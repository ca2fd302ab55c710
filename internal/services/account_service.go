package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
)

// ExchangeAccountName identifies the system account that stands on the other
// side of every stock and crypto trade.
const ExchangeAccountName = "Exchange"

// accountService handles account-related business logic.
type accountService struct {
	db     *gorm.DB
	ledger LedgerServicer
	fee    int64 // company creation fee, burned
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, ledger LedgerServicer, companyCreationFee int64) AccountServicer {
	return &accountService{db: db, ledger: ledger, fee: companyCreationFee}
}

// CreatePlayerAccount creates a player account. A positive starter balance
// is minted onto it so the grant shows up in the ledger history.
func (s *accountService) CreatePlayerAccount(name string, starterBalance int64) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if starterBalance < 0 || !money.Valid(starterBalance) {
		return nil, apperrors.ErrInvalidAmount
	}

	account := &models.Account{
		Kind:     models.AccountKindPlayer,
		Name:     name,
		Role:     models.RolePlayer,
		IsActive: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Create(account).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		if starterBalance > 0 {
			if _, txErr := s.ledger.MintTx(tx, account.ID, starterBalance, models.EntryKindCash, "Starter grant"); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload so the minted balance is reflected on the returned value.
	return s.GetAccountByID(account.ID)
}

// CreateCompany creates a company plus its dedicated cash account. The
// creation fee is burned from the owner's balance.
func (s *accountService) CreateCompany(ownerID, name string) (*models.Company, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "company name is required")
	}

	owner, err := s.GetAccountByID(ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Kind != models.AccountKindPlayer {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "only player accounts can create companies")
	}

	company := &models.Company{OwnerID: owner.ID, Name: name}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if s.fee > 0 {
			if _, txErr := s.ledger.BurnTx(tx, owner.ID, s.fee, models.EntryKindCash, "Company creation fee"); txErr != nil {
				return txErr
			}
		}

		account := &models.Account{
			Kind:     models.AccountKindCompany,
			Name:     name,
			IsActive: true,
		}
		if txErr := tx.Create(account).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		company.AccountID = account.ID
		if txErr := tx.Create(company).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCompanyByID(company.ID)
}

// GetAccountByID returns an account by ID.
func (s *accountService) GetAccountByID(accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetCompanyByID returns a company with its account preloaded.
func (s *accountService) GetCompanyByID(companyID string) (*models.Company, error) {
	var company models.Company
	if err := s.db.Preload("Account").First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &company, nil
}

// GetHoldings returns an account's positions enriched with current prices
// and unrealized P/L for display.
func (s *accountService) GetHoldings(accountID string) ([]HoldingView, error) {
	if _, err := s.GetAccountByID(accountID); err != nil {
		return nil, err
	}

	var holdings []models.Holding
	if err := s.db.Where("account_id = ? AND quantity > 0", accountID).Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	views := make([]HoldingView, 0, len(holdings))
	for i := range holdings {
		h := holdings[i]
		view := HoldingView{Holding: h}

		switch h.AssetKind {
		case models.AssetKindStock:
			var stock models.Stock
			if err := s.db.First(&stock, "id = ?", h.AssetID).Error; err == nil {
				view.Ticker = stock.Ticker
				view.CurrentPrice = stock.Price
			}
		case models.AssetKindCrypto:
			var crypto models.Cryptocurrency
			if err := s.db.First(&crypto, "id = ?", h.AssetID).Error; err == nil {
				view.Ticker = crypto.Ticker
				view.CurrentPrice = crypto.CurrentPrice
			}
		}

		if value, err := money.MulFloat(view.CurrentPrice, h.Quantity); err == nil {
			view.MarketValue = value
			if cost, err := money.MulFloat(h.AvgPurchasePrice, h.Quantity); err == nil {
				view.UnrealizedGainLoss = value - cost
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// RequireCapability loads the actor and checks its role. Trading and ledger
// code never inspect roles directly; privileged paths call this first.
func (s *accountService) RequireCapability(actorID string, required models.Role) (*models.Account, error) {
	actor, err := s.GetAccountByID(actorID)
	if err != nil {
		return nil, err
	}
	if !actor.HasCapability(required) {
		return nil, apperrors.ErrPermissionDenied
	}
	return actor, nil
}

// EnsureExchangeAccount returns the exchange system account, creating it
// with the configured reserve on first use.
func (s *accountService) EnsureExchangeAccount(reserve int64) (*models.Account, error) {
	var account models.Account
	err := s.db.Where("kind = ? AND name = ?", models.AccountKindSystem, ExchangeAccountName).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	account = models.Account{
		Kind:     models.AccountKindSystem,
		Name:     ExchangeAccountName,
		Balance:  reserve,
		IsActive: true,
	}
	if err := s.db.Create(&account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}
