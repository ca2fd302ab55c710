package models

import (
	"time"

	"magnate/internal/uuid"

	"gorm.io/gorm"
)

// TickRecord is the append-only audit trail of one simulation step. Summary
// and Errors hold JSON produced by the tick engine with enough detail to
// reconstruct what changed (price deltas, bot purchases, step failures).
type TickRecord struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Sequence       int64     `gorm:"not null;uniqueIndex" json:"sequence"`
	StartedAt      time.Time `gorm:"not null" json:"started_at"`
	FinishedAt     time.Time `gorm:"not null" json:"finished_at"`
	LoansAccrued   int       `gorm:"not null;default:0" json:"loans_accrued"`
	StocksUpdated  int       `gorm:"not null;default:0" json:"stocks_updated"`
	CryptosUpdated int       `gorm:"not null;default:0" json:"cryptos_updated"`
	BotPurchases   int       `gorm:"not null;default:0" json:"bot_purchases"`
	BudgetSpent    int64     `gorm:"type:bigint;not null;default:0" json:"budget_spent"`
	Summary        string    `json:"summary,omitempty"`
	Errors         string    `json:"errors,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (t *TickRecord) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}
