package models

import "magnate/internal/money"

// Stock is the exchange listing of a public company. Prices are in minor
// units and move only through the pricing model, user trades, or an admin
// override.
type Stock struct {
	Base
	CompanyID     string `gorm:"type:uuid;not null;uniqueIndex" json:"company_id"`
	Ticker        string `gorm:"not null;uniqueIndex" json:"ticker"`
	Price         int64  `gorm:"type:bigint;not null" json:"price"`
	PreviousPrice int64  `gorm:"type:bigint;not null" json:"previous_price"`
	// AnchorPrice is the fundamentals-implied fair value the price mean-reverts
	// toward. It drifts with company growth, independently of the traded price.
	AnchorPrice int64 `gorm:"type:bigint;not null" json:"anchor_price"`
	TotalShares int64 `gorm:"not null" json:"total_shares"`

	// Pricing-model state
	GrowthRate    float64 `gorm:"not null;default:0" json:"growth_rate"`   // per-day fundamental growth
	Volatility    float64 `gorm:"not null;default:0.02" json:"volatility"` // clustered per-tick vol estimate
	Sentiment     float64 `gorm:"not null;default:0" json:"sentiment"`     // -1..1
	LastChangePct float64 `gorm:"not null;default:0" json:"last_change_pct"`
	Flagged       bool    `gorm:"default:false" json:"flagged"` // under moderation review, drags sentiment

	Company Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

// MarketCap is always derived from price and share count, never stored.
func (s *Stock) MarketCap() int64 {
	cap, err := money.Mul(s.Price, s.TotalShares)
	if err != nil {
		return money.MaxAmount
	}
	return cap
}
