package models

import (
	"time"

	"magnate/internal/money"
)

// Cryptocurrency is a player-created coin. The creator pays a fixed fee
// (burned) and receives the full initial supply. Unlike stocks, user trades
// shift the stored price through the liquidity-based impact model.
type Cryptocurrency struct {
	Base
	CreatorID         string  `gorm:"type:uuid;not null;index" json:"creator_id"`
	Ticker            string  `gorm:"not null;uniqueIndex" json:"ticker"`
	Name              string  `gorm:"not null" json:"name"`
	CurrentPrice      int64   `gorm:"type:bigint;not null" json:"current_price"`
	CirculatingSupply float64 `gorm:"not null" json:"circulating_supply"`
	TotalSupply       float64 `gorm:"not null" json:"total_supply"`
	// Liquidity is the simulated pool depth in coins; trade impact scales
	// with quantity relative to this depth.
	Liquidity float64 `gorm:"not null" json:"liquidity"`

	// Pricing-model state
	BaseVolatility       float64   `gorm:"not null;default:0.05" json:"base_volatility"`
	Volatility           float64   `gorm:"not null;default:0.05" json:"volatility"`
	TrendDrift           float64   `gorm:"not null;default:0" json:"trend_drift"`
	LastPriceChange      float64   `gorm:"not null;default:0" json:"last_price_change"`
	LastVolatilityUpdate time.Time `json:"last_volatility_update"`

	Creator Account `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
}

// MarketCap is always derived from price and circulating supply.
func (c *Cryptocurrency) MarketCap() int64 {
	cap, err := money.MulFloat(c.CurrentPrice, c.CirculatingSupply)
	if err != nil {
		return money.MaxAmount
	}
	return cap
}
