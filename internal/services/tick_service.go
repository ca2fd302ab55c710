package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/locks"
	"magnate/internal/logger"
	"magnate/internal/models"
	"magnate/internal/pagination"
	"magnate/internal/pricing"
)

// tickService drives the simulation clock. One tick accrues loan interest,
// steps every asset price, runs the bot marketplace, and records an audit
// row. Ticks never overlap: a second caller gets ErrTickInProgress instead
// of queueing.
type tickService struct {
	db          *gorm.DB
	loans       LoanServicer
	demand      DemandServicer
	history     HistoryServicer
	assetLocks  *locks.KeyedMutex
	ticksPerDay int
	botBudget   int64

	running sync.Mutex
	// newRand is swapped in tests to make a tick reproducible.
	newRand func() *rand.Rand
}

// NewTickService creates a new TickServicer. The KeyedMutex must be the
// instance the trading service locks, so a price step and a trade on the
// same asset serialize.
func NewTickService(db *gorm.DB, loans LoanServicer, demand DemandServicer, history HistoryServicer, assetLocks *locks.KeyedMutex, ticksPerDay int, botBudget int64) TickServicer {
	if ticksPerDay <= 0 {
		ticksPerDay = 1
	}
	return &tickService{
		db:          db,
		loans:       loans,
		demand:      demand,
		history:     history,
		assetLocks:  assetLocks,
		ticksPerDay: ticksPerDay,
		botBudget:   botBudget,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// assetChange is one asset's price move inside a tick summary.
type assetChange struct {
	AssetID   string  `json:"asset_id"`
	Ticker    string  `json:"ticker"`
	OldPrice  int64   `json:"old_price"`
	NewPrice  int64   `json:"new_price"`
	ChangePct float64 `json:"change_pct"`
}

// tickSummary is the JSON stored on a TickRecord.
type tickSummary struct {
	Stocks  []assetChange `json:"stocks"`
	Cryptos []assetChange `json:"cryptos"`
	Demand  *DemandResult `json:"demand,omitempty"`
}

// tickLeaseKey identifies the advisory lock shared by every process
// that can start a tick against the same database.
const tickLeaseKey = int64(0x6d61676e617465)

// acquireTickLease claims the cross-process tick lock. The in-process
// mutex only guards one binary, but the worker and the admin endpoint
// both run ticks against the same database, so on postgres we hold a
// session advisory lock on a pinned connection for the tick's duration.
// Other dialects fall back to the in-process mutex alone.
func (s *tickService) acquireTickLease() (func(), error) {
	if s.db.Dialector.Name() != "postgres" {
		return func() {}, nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	ctx := context.Background()
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", tickLeaseKey).Scan(&acquired); err != nil {
		conn.Close()
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !acquired {
		conn.Close()
		return nil, apperrors.ErrTickInProgress
	}
	return func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", tickLeaseKey)
		conn.Close()
	}, nil
}

// ExecuteTick runs one simulation step. Failures in one step or one asset
// are collected on the record; later steps still run, so a single bad row
// cannot freeze the whole economy.
func (s *tickService) ExecuteTick() (*models.TickRecord, error) {
	if !s.running.TryLock() {
		return nil, apperrors.ErrTickInProgress
	}
	defer s.running.Unlock()

	release, err := s.acquireTickLease()
	if err != nil {
		return nil, err
	}
	defer release()

	log := logger.Get()
	startedAt := time.Now()
	r := s.newRand()
	since := s.lastTickTime()

	record := &models.TickRecord{StartedAt: startedAt}
	summary := tickSummary{Stocks: []assetChange{}, Cryptos: []assetChange{}}
	var stepErrors []string

	accrued, err := s.loans.AccrueAll()
	record.LoansAccrued = accrued
	if err != nil {
		stepErrors = append(stepErrors, fmt.Sprintf("loans: %v", err))
		log.Errorw("loan accrual failed", "error", err)
	}

	stockChanges, stockErrs := s.stepStocks(r, since, startedAt)
	summary.Stocks = stockChanges
	record.StocksUpdated = len(stockChanges)
	stepErrors = append(stepErrors, stockErrs...)

	cryptoChanges, cryptoErrs := s.stepCryptos(r, since, startedAt)
	summary.Cryptos = cryptoChanges
	record.CryptosUpdated = len(cryptoChanges)
	stepErrors = append(stepErrors, cryptoErrs...)

	demandResult, err := s.demand.RunTick(r, s.botBudget)
	if err != nil {
		stepErrors = append(stepErrors, fmt.Sprintf("demand: %v", err))
		log.Errorw("demand simulation failed", "error", err)
	} else {
		summary.Demand = demandResult
		record.BotPurchases = len(demandResult.Purchases)
		record.BudgetSpent = demandResult.TotalSpent
	}

	record.FinishedAt = time.Now()
	if data, jerr := json.Marshal(summary); jerr == nil {
		record.Summary = string(data)
	}
	if len(stepErrors) > 0 {
		if data, jerr := json.Marshal(stepErrors); jerr == nil {
			record.Errors = string(data)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		row := tx.Model(&models.TickRecord{}).Select("COALESCE(MAX(sequence), 0)").Row()
		if txErr := row.Scan(&maxSeq); txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		record.Sequence = maxSeq + 1
		if txErr := tx.Create(record).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infow("tick complete",
		"sequence", record.Sequence,
		"stocks", record.StocksUpdated,
		"cryptos", record.CryptosUpdated,
		"loans", record.LoansAccrued,
		"bot_purchases", record.BotPurchases,
		"errors", len(stepErrors),
		"duration", record.FinishedAt.Sub(record.StartedAt),
	)
	return record, nil
}

// GetTickRecords returns the tick audit trail, newest first.
func (s *tickService) GetTickRecords(page pagination.PageRequest) (*pagination.PageResponse[models.TickRecord], error) {
	page.Defaults()

	var totalItems int64
	if err := s.db.Model(&models.TickRecord{}).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var records []models.TickRecord
	if err := s.db.Order("sequence DESC").
		Scopes(pagination.Paginate(page)).Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(records, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// stepStocks advances every listed stock by one pricing-model tick. Each
// asset gets its own lock and transaction; a failure is reported and the
// loop moves on.
func (s *tickService) stepStocks(r *rand.Rand, since, tickAt time.Time) ([]assetChange, []string) {
	var stocks []models.Stock
	if err := s.db.Order("ticker ASC").Find(&stocks).Error; err != nil {
		return nil, []string{fmt.Sprintf("stocks: %v", err)}
	}

	changes := make([]assetChange, 0, len(stocks))
	var errs []string
	for i := range stocks {
		change, err := s.stepStock(r, stocks[i].ID, since, tickAt)
		if err != nil {
			errs = append(errs, fmt.Sprintf("stock %s: %v", stocks[i].Ticker, err))
			continue
		}
		changes = append(changes, *change)
	}
	return changes, errs
}

func (s *tickService) stepStock(r *rand.Rand, stockID string, since, tickAt time.Time) (*assetChange, error) {
	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindStock, stockID))
	defer unlock()

	var change *assetChange
	err := s.db.Transaction(func(tx *gorm.DB) error {
		stock, err := loadStock(tx, stockID)
		if err != nil {
			return err
		}

		result := pricing.NextStockPrice(r, s.ticksPerDay, pricing.StockState{
			Price:         stock.Price,
			AnchorPrice:   stock.AnchorPrice,
			GrowthRate:    stock.GrowthRate,
			Volatility:    stock.Volatility,
			Sentiment:     stock.Sentiment,
			LastChangePct: stock.LastChangePct,
			Flagged:       stock.Flagged,
		})

		updates := map[string]any{
			"previous_price":  stock.Price,
			"price":           result.Price,
			"anchor_price":    result.AnchorPrice,
			"volatility":      result.Volatility,
			"last_change_pct": result.ChangePct,
		}
		if err := tx.Model(stock).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if _, err := s.history.RecordCandle(tx, models.AssetKindStock, stock.ID, stock.Price, result.Price, since, tickAt); err != nil {
			return err
		}

		change = &assetChange{
			AssetID:   stock.ID,
			Ticker:    stock.Ticker,
			OldPrice:  stock.Price,
			NewPrice:  result.Price,
			ChangePct: result.ChangePct,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// stepCryptos mirrors stepStocks for coins.
func (s *tickService) stepCryptos(r *rand.Rand, since, tickAt time.Time) ([]assetChange, []string) {
	var cryptos []models.Cryptocurrency
	if err := s.db.Order("ticker ASC").Find(&cryptos).Error; err != nil {
		return nil, []string{fmt.Sprintf("cryptos: %v", err)}
	}

	changes := make([]assetChange, 0, len(cryptos))
	var errs []string
	for i := range cryptos {
		change, err := s.stepCrypto(r, cryptos[i].ID, since, tickAt)
		if err != nil {
			errs = append(errs, fmt.Sprintf("crypto %s: %v", cryptos[i].Ticker, err))
			continue
		}
		changes = append(changes, *change)
	}
	return changes, errs
}

func (s *tickService) stepCrypto(r *rand.Rand, cryptoID string, since, tickAt time.Time) (*assetChange, error) {
	unlock := s.assetLocks.Lock(assetLockKey(models.AssetKindCrypto, cryptoID))
	defer unlock()

	var change *assetChange
	err := s.db.Transaction(func(tx *gorm.DB) error {
		crypto, err := loadCrypto(tx, cryptoID)
		if err != nil {
			return err
		}

		result := pricing.NextCryptoPrice(r, pricing.CryptoState{
			Price:           crypto.CurrentPrice,
			BaseVolatility:  crypto.BaseVolatility,
			Volatility:      crypto.Volatility,
			TrendDrift:      crypto.TrendDrift,
			LastPriceChange: crypto.LastPriceChange,
		})

		updates := map[string]any{
			"current_price":          result.Price,
			"volatility":             result.Volatility,
			"trend_drift":            result.TrendDrift,
			"last_price_change":      result.ChangePct,
			"last_volatility_update": tickAt,
		}
		if err := tx.Model(crypto).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if _, err := s.history.RecordCandle(tx, models.AssetKindCrypto, crypto.ID, crypto.CurrentPrice, result.Price, since, tickAt); err != nil {
			return err
		}

		change = &assetChange{
			AssetID:   crypto.ID,
			Ticker:    crypto.Ticker,
			OldPrice:  crypto.CurrentPrice,
			NewPrice:  result.Price,
			ChangePct: result.ChangePct,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// lastTickTime returns the previous tick's finish time, or the zero time on
// the very first tick so the first candle window covers all prior trades.
func (s *tickService) lastTickTime() time.Time {
	var last models.TickRecord
	if err := s.db.Order("sequence DESC").First(&last).Error; err != nil {
		return time.Time{}
	}
	return last.FinishedAt
}
