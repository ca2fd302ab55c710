package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pagination"
)

// stockService handles stock listings.
type stockService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewStockService creates a new StockServicer.
func NewStockService(db *gorm.DB, accountService AccountServicer) StockServicer {
	return &stockService{db: db, accountService: accountService}
}

// IPO takes a company public and lists its stock. The actor must own the
// company; the ticker must be unused. The listing price seeds both the
// traded price and the fair-value anchor the pricing model reverts toward.
func (s *stockService) IPO(actorID, companyID, ticker string, totalShares, price int64) (*models.Stock, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ticker is required")
	}
	if totalShares <= 0 || !money.Valid(totalShares) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidAmount, "total shares must be positive")
	}
	if price <= 0 || !money.Valid(price) {
		return nil, apperrors.ErrInvalidAmount
	}
	// Market cap must stay representable no matter how far the price runs.
	if _, err := money.Mul(price, totalShares); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}

	company, err := s.accountService.GetCompanyByID(companyID)
	if err != nil {
		return nil, err
	}
	if company.OwnerID != actorID {
		return nil, apperrors.ErrPermissionDenied
	}
	if company.IsPublic {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "company is already public")
	}

	if err := s.checkTickerFree(ticker); err != nil {
		return nil, err
	}

	stock := &models.Stock{
		CompanyID:     company.ID,
		Ticker:        ticker,
		Price:         price,
		PreviousPrice: price,
		AnchorPrice:   price,
		TotalShares:   totalShares,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Model(company).Update("is_public", true).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		if txErr := tx.Create(stock).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// GetStockByID returns a stock with its company preloaded.
func (s *stockService) GetStockByID(stockID string) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.Preload("Company").First(&stock, "id = ?", stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}

// ListStocks returns all listed stocks ordered by ticker.
func (s *stockService) ListStocks(page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.Stock{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var stocks []models.Stock
	if err := s.db.Preload("Company").Order("ticker ASC").
		Scopes(pagination.Paginate(page)).Find(&stocks).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(stocks, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// checkTickerFree rejects tickers already used by a stock or a crypto.
// One shared namespace keeps asset symbols unambiguous in the UI.
func (s *stockService) checkTickerFree(ticker string) error {
	var count int64
	if err := s.db.Model(&models.Stock{}).Where("ticker = ?", ticker).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateTicker
	}
	if err := s.db.Model(&models.Cryptocurrency{}).Where("ticker = ?", ticker).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateTicker
	}
	return nil
}
