package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pagination"
)

// cryptoService handles creation and lookup of player-launched coins.
type cryptoService struct {
	db          *gorm.DB
	ledger      LedgerServicer
	creationFee int64
}

// NewCryptoService creates a new CryptoServicer.
func NewCryptoService(db *gorm.DB, ledger LedgerServicer, creationFee int64) CryptoServicer {
	return &cryptoService{db: db, ledger: ledger, creationFee: creationFee}
}

// CreateCryptocurrency launches a new coin. The creation fee is burned from
// the creator, who then holds the entire supply at a zero cost basis.
func (s *cryptoService) CreateCryptocurrency(creatorID, ticker, name string, totalSupply, liquidity float64, initialPrice int64) (*models.Cryptocurrency, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" || name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ticker and name are required")
	}
	if totalSupply <= 0 || liquidity <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "supply and liquidity must be positive")
	}
	if initialPrice <= 0 || !money.Valid(initialPrice) {
		return nil, apperrors.ErrInvalidAmount
	}
	if _, err := money.MulFloat(initialPrice, totalSupply); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}

	if err := s.checkTickerFree(ticker); err != nil {
		return nil, err
	}

	crypto := &models.Cryptocurrency{
		CreatorID:            creatorID,
		Ticker:               ticker,
		Name:                 name,
		CurrentPrice:         initialPrice,
		CirculatingSupply:    totalSupply,
		TotalSupply:          totalSupply,
		Liquidity:            liquidity,
		BaseVolatility:       0.05,
		Volatility:           0.05,
		LastVolatilityUpdate: time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Resolve the creator first so a coin can never reference a
		// nonexistent account, even when no fee is charged.
		if _, txErr := lockAccount(tx, creatorID); txErr != nil {
			return txErr
		}
		if s.creationFee > 0 {
			if _, txErr := s.ledger.BurnTx(tx, creatorID, s.creationFee, models.EntryKindCash, "Crypto creation fee: "+ticker); txErr != nil {
				return txErr
			}
		}
		if txErr := tx.Create(crypto).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		holding := &models.Holding{
			AccountID:        creatorID,
			AssetKind:        models.AssetKindCrypto,
			AssetID:          crypto.ID,
			Quantity:         totalSupply,
			AvgPurchasePrice: 0,
		}
		if txErr := tx.Create(holding).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return crypto, nil
}

// GetCryptoByID returns a cryptocurrency by ID.
func (s *cryptoService) GetCryptoByID(cryptoID string) (*models.Cryptocurrency, error) {
	var crypto models.Cryptocurrency
	if err := s.db.First(&crypto, "id = ?", cryptoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &crypto, nil
}

// ListCryptos returns all coins ordered by ticker.
func (s *cryptoService) ListCryptos(page pagination.PageRequest) (*pagination.PageResponse[models.Cryptocurrency], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.Cryptocurrency{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var cryptos []models.Cryptocurrency
	if err := s.db.Order("ticker ASC").
		Scopes(pagination.Paginate(page)).Find(&cryptos).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(cryptos, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// checkTickerFree mirrors the stock-side check: stocks and coins share one
// symbol namespace.
func (s *cryptoService) checkTickerFree(ticker string) error {
	var count int64
	if err := s.db.Model(&models.Cryptocurrency{}).Where("ticker = ?", ticker).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateTicker
	}
	if err := s.db.Model(&models.Stock{}).Where("ticker = ?", ticker).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateTicker
	}
	return nil
}
