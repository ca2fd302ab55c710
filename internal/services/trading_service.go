package services

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/locks"
	"magnate/internal/models"
	"magnate/internal/money"
	"magnate/internal/pagination"
	"magnate/internal/pricing"
)

// tradingService executes buy and sell orders against the exchange float.
// Each order runs under the asset's keyed mutex and a single database
// transaction, so concurrent orders on the same asset serialize and a
// failed order leaves no partial state.
type tradingService struct {
	db         *gorm.DB
	ledger     LedgerServicer
	accounts   AccountServicer
	assetLocks *locks.KeyedMutex
	holdingCap float64 // max stock quantity per holding, 0 disables
}

// NewTradingService creates a new TradingServicer. The KeyedMutex must be
// the same instance the tick engine uses.
func NewTradingService(db *gorm.DB, ledger LedgerServicer, accounts AccountServicer, assetLocks *locks.KeyedMutex, stockHoldingCap float64) TradingServicer {
	return &tradingService{
		db:         db,
		ledger:     ledger,
		accounts:   accounts,
		assetLocks: assetLocks,
		holdingCap: stockHoldingCap,
	}
}

// assetLockKey namespaces lock keys by asset kind so a stock and a crypto
// sharing a UUID (impossible, but cheap to rule out) never contend.
func assetLockKey(kind models.AssetKind, assetID string) string {
	return string(kind) + ":" + assetID
}

// BuyStock purchases shares at the current listed price.
func (s *tradingService) BuyStock(accountID, stockID string, order TradeOrder) (*models.Trade, error) {
	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindStock, stockID))
	defer unlock()

	var trade *models.Trade
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stock, err := loadStock(tx, stockID)
		if err != nil {
			return err
		}

		var company models.Company
		if err := tx.First(&company, "id = ?", stock.CompanyID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !company.IsPublic {
			return apperrors.ErrCompanyNotPublic
		}

		quantity, total, err := resolveOrder(order, stock.Price)
		if err != nil {
			return err
		}

		holding, err := s.loadOrInitHolding(tx, accountID, models.AssetKindStock, stock.ID)
		if err != nil {
			return err
		}
		if s.holdingCap > 0 && holding.Quantity+quantity > s.holdingCap {
			return apperrors.ErrHoldingLimitExceeded
		}

		exchange, err := s.accounts.EnsureExchangeAccount(0)
		if err != nil {
			return err
		}
		if _, err := s.ledger.TransferTx(tx, accountID, exchange.ID, total, models.EntryKindStock,
			fmt.Sprintf("Buy %s x%.4f", stock.Ticker, quantity)); err != nil {
			return err
		}

		if err := applyBuyToHolding(tx, holding, quantity, stock.Price); err != nil {
			return err
		}

		trade, err = recordTrade(tx, accountID, models.AssetKindStock, stock.ID, models.TradeSideBuy, quantity, stock.Price, total)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// SellStock sells shares at the current listed price.
func (s *tradingService) SellStock(accountID, stockID string, quantity float64) (*models.Trade, error) {
	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindStock, stockID))
	defer unlock()

	var trade *models.Trade
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stock, err := loadStock(tx, stockID)
		if err != nil {
			return err
		}

		total, err := validateSell(quantity, stock.Price)
		if err != nil {
			return err
		}

		holding, err := s.loadOrInitHolding(tx, accountID, models.AssetKindStock, stock.ID)
		if err != nil {
			return err
		}
		if holding.Quantity < quantity {
			return apperrors.ErrInsufficientHoldings
		}

		exchange, err := s.accounts.EnsureExchangeAccount(0)
		if err != nil {
			return err
		}
		if _, err := s.ledger.TransferTx(tx, exchange.ID, accountID, total, models.EntryKindStock,
			fmt.Sprintf("Sell %s x%.4f", stock.Ticker, quantity)); err != nil {
			return err
		}

		if err := applySellToHolding(tx, holding, quantity); err != nil {
			return err
		}

		trade, err = recordTrade(tx, accountID, models.AssetKindStock, stock.ID, models.TradeSideSell, quantity, stock.Price, total)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// BuyCrypto purchases coins through the liquidity impact model. The order
// executes at the impact-averaged price and the stored price moves up by
// the full impact.
func (s *tradingService) BuyCrypto(accountID, cryptoID string, order TradeOrder) (*models.Trade, error) {
	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindCrypto, cryptoID))
	defer unlock()

	var trade *models.Trade
	err := s.db.Transaction(func(tx *gorm.DB) error {
		crypto, err := loadCrypto(tx, cryptoID)
		if err != nil {
			return err
		}

		// Sizing uses the quoted price; execution happens at the impacted one.
		quantity, _, err := resolveOrder(order, crypto.CurrentPrice)
		if err != nil {
			return err
		}

		impact := pricing.Impact(crypto.CurrentPrice, quantity, crypto.Liquidity, true)
		total, err := money.MulFloat(impact.EffectivePrice, quantity)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrOverflowDetected, err)
		}
		if total <= 0 {
			return apperrors.ErrInvalidAmount
		}

		holding, err := s.loadOrInitHolding(tx, accountID, models.AssetKindCrypto, crypto.ID)
		if err != nil {
			return err
		}

		exchange, err := s.accounts.EnsureExchangeAccount(0)
		if err != nil {
			return err
		}
		if _, err := s.ledger.TransferTx(tx, accountID, exchange.ID, total, models.EntryKindCrypto,
			fmt.Sprintf("Buy %s x%.4f", crypto.Ticker, quantity)); err != nil {
			return err
		}

		if err := applyBuyToHolding(tx, holding, quantity, impact.EffectivePrice); err != nil {
			return err
		}

		if err := tx.Model(crypto).Update("current_price", impact.NewPrice).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		trade, err = recordTrade(tx, accountID, models.AssetKindCrypto, crypto.ID, models.TradeSideBuy, quantity, impact.EffectivePrice, total)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// SellCrypto sells coins through the liquidity impact model.
func (s *tradingService) SellCrypto(accountID, cryptoID string, quantity float64) (*models.Trade, error) {
	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindCrypto, cryptoID))
	defer unlock()

	var trade *models.Trade
	err := s.db.Transaction(func(tx *gorm.DB) error {
		crypto, err := loadCrypto(tx, cryptoID)
		if err != nil {
			return err
		}

		if _, err := validateSell(quantity, crypto.CurrentPrice); err != nil {
			return err
		}

		holding, err := s.loadOrInitHolding(tx, accountID, models.AssetKindCrypto, crypto.ID)
		if err != nil {
			return err
		}
		if holding.Quantity < quantity {
			return apperrors.ErrInsufficientHoldings
		}

		impact := pricing.Impact(crypto.CurrentPrice, quantity, crypto.Liquidity, false)
		total, err := money.MulFloat(impact.EffectivePrice, quantity)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrOverflowDetected, err)
		}
		if total <= 0 {
			return apperrors.ErrInvalidAmount
		}

		exchange, err := s.accounts.EnsureExchangeAccount(0)
		if err != nil {
			return err
		}
		if _, err := s.ledger.TransferTx(tx, exchange.ID, accountID, total, models.EntryKindCrypto,
			fmt.Sprintf("Sell %s x%.4f", crypto.Ticker, quantity)); err != nil {
			return err
		}

		if err := applySellToHolding(tx, holding, quantity); err != nil {
			return err
		}

		if err := tx.Model(crypto).Update("current_price", impact.NewPrice).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		trade, err = recordTrade(tx, accountID, models.AssetKindCrypto, crypto.ID, models.TradeSideSell, quantity, impact.EffectivePrice, total)
		return err
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// GetAssetTrades returns the trade tape for one asset, newest first.
func (s *tradingService) GetAssetTrades(kind models.AssetKind, assetID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trade], error) {
	page.Defaults()

	base := s.db.Model(&models.Trade{}).Where("asset_kind = ? AND asset_id = ?", kind, assetID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trades []models.Trade
	if err := base.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(trades, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// resolveOrder turns a TradeOrder into a concrete quantity and total cost at
// the given quote price. Exactly one sizing field must be set.
func resolveOrder(order TradeOrder, price int64) (float64, int64, error) {
	byQuantity := order.Quantity > 0
	bySpend := order.SpendAmount > 0
	if byQuantity == bySpend {
		return 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "set exactly one of quantity or spend_amount")
	}

	var quantity float64
	if byQuantity {
		quantity = order.Quantity
	} else {
		if !money.Valid(order.SpendAmount) {
			return 0, 0, apperrors.ErrOverflowDetected
		}
		quantity = float64(order.SpendAmount) / float64(price)
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return 0, 0, apperrors.ErrInvalidAmount
	}

	total, err := money.MulFloat(price, quantity)
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}
	if total <= 0 {
		return 0, 0, apperrors.WithMessage(apperrors.ErrInvalidAmount, "order too small")
	}
	return quantity, total, nil
}

func validateSell(quantity float64, price int64) (int64, error) {
	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0, apperrors.ErrInvalidAmount
	}
	total, err := money.MulFloat(price, quantity)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrOverflowDetected, err)
	}
	if total <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidAmount, "order too small")
	}
	return total, nil
}

// loadOrInitHolding returns the account's holding row for the asset,
// creating an empty one on first trade. The account must exist.
func (s *tradingService) loadOrInitHolding(tx *gorm.DB, accountID string, kind models.AssetKind, assetID string) (*models.Holding, error) {
	if _, err := s.accounts.GetAccountByID(accountID); err != nil {
		return nil, err
	}

	var holding models.Holding
	err := tx.Where("account_id = ? AND asset_kind = ? AND asset_id = ?", accountID, kind, assetID).
		First(&holding).Error
	if err == nil {
		return &holding, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	holding = models.Holding{AccountID: accountID, AssetKind: kind, AssetID: assetID}
	if err := tx.Create(&holding).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &holding, nil
}

// applyBuyToHolding folds a buy into the quantity-weighted average cost:
// floor((Q*P + q*p) / (Q+q)). Sells never change the average.
func applyBuyToHolding(tx *gorm.DB, holding *models.Holding, quantity float64, price int64) error {
	oldCost := holding.Quantity * float64(holding.AvgPurchasePrice)
	newCost := quantity * float64(price)
	newQuantity := holding.Quantity + quantity
	newAvg := int64(math.Floor((oldCost + newCost) / newQuantity))

	err := tx.Model(holding).Updates(map[string]any{
		"quantity":           newQuantity,
		"avg_purchase_price": newAvg,
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func applySellToHolding(tx *gorm.DB, holding *models.Holding, quantity float64) error {
	remaining := holding.Quantity - quantity
	if remaining < 0 {
		return apperrors.ErrInsufficientHoldings
	}
	if err := tx.Model(holding).Update("quantity", remaining).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func recordTrade(tx *gorm.DB, accountID string, kind models.AssetKind, assetID string, side models.TradeSide, quantity float64, price, total int64) (*models.Trade, error) {
	trade := &models.Trade{
		AccountID: accountID,
		AssetKind: kind,
		AssetID:   assetID,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Total:     total,
	}
	if err := tx.Create(trade).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return trade, nil
}

func loadStock(tx *gorm.DB, stockID string) (*models.Stock, error) {
	var stock models.Stock
	if err := forUpdate(tx).First(&stock, "id = ?", stockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &stock, nil
}

func loadCrypto(tx *gorm.DB, cryptoID string) (*models.Cryptocurrency, error) {
	var crypto models.Cryptocurrency
	if err := forUpdate(tx).First(&crypto, "id = ?", cryptoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &crypto, nil
}
