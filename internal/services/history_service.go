package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "magnate/internal/errors"
	"magnate/internal/models"
	"magnate/internal/pagination"
)

// historyService persists per-tick OHLCV candles. Candles are written by
// the tick engine only; reads back the series for charting.
type historyService struct {
	db *gorm.DB
}

// NewHistoryService creates a new HistoryServicer.
func NewHistoryService(db *gorm.DB) HistoryServicer {
	return &historyService{db: db}
}

// RecordCandle writes one candle for an asset covering (since, tickAt].
// Open and close are the prices bracketing the tick's model step; the high,
// low, and volume fold in any user trades executed inside the window. The
// candle is written through tx so it commits or rolls back with the price
// update it describes.
func (s *historyService) RecordCandle(tx *gorm.DB, kind models.AssetKind, assetID string, open, close int64, since, tickAt time.Time) (*models.Candle, error) {
	candle := &models.Candle{
		AssetKind: kind,
		AssetID:   assetID,
		Open:      open,
		High:      maxPrice(open, close),
		Low:       minPrice(open, close),
		Close:     close,
		TickAt:    tickAt,
	}

	var trades []models.Trade
	if err := tx.Where("asset_kind = ? AND asset_id = ? AND created_at > ? AND created_at <= ?",
		kind, assetID, since, tickAt).Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, t := range trades {
		candle.High = maxPrice(candle.High, t.Price)
		candle.Low = minPrice(candle.Low, t.Price)
		candle.Volume += t.Quantity
	}

	if err := tx.Create(candle).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return candle, nil
}

// GetCandles returns an asset's candle series, newest first.
func (s *historyService) GetCandles(kind models.AssetKind, assetID string, page pagination.PageRequest) (*pagination.PageResponse[models.Candle], error) {
	page.Defaults()

	base := s.db.Model(&models.Candle{}).Where("asset_kind = ? AND asset_id = ?", kind, assetID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var candles []models.Candle
	if err := base.Order("tick_at DESC").
		Scopes(pagination.Paginate(page)).Find(&candles).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(candles, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func maxPrice(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minPrice(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
