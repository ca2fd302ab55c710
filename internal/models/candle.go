package models

import (
	"time"

	"magnate/internal/uuid"

	"gorm.io/gorm"
)

// Candle is the OHLCV summary of one asset over one tick interval.
// Append-only time-series data — no Base embed, no soft deletes.
type Candle struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AssetKind AssetKind `gorm:"not null;index:idx_candles_asset" json:"asset_kind"`
	AssetID   string    `gorm:"type:uuid;not null;index:idx_candles_asset" json:"asset_id"`
	Open      int64     `gorm:"type:bigint;not null" json:"open"`
	High      int64     `gorm:"type:bigint;not null" json:"high"`
	Low       int64     `gorm:"type:bigint;not null" json:"low"`
	Close     int64     `gorm:"type:bigint;not null" json:"close"`
	Volume    float64   `gorm:"not null;default:0" json:"volume"`
	TickAt    time.Time `gorm:"not null;index" json:"tick_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (c *Candle) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New()
	}
	return nil
}
