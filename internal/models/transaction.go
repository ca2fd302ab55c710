package models

import (
	"time"

	"magnate/internal/uuid"

	"gorm.io/gorm"
)

// EntryKind classifies what a ledger entry paid for.
type EntryKind string

const (
	EntryKindCash    EntryKind = "cash"
	EntryKindStock   EntryKind = "stock"
	EntryKindCrypto  EntryKind = "crypto"
	EntryKindProduct EntryKind = "product"
)

// Transaction is an immutable double-entry ledger record. A nil FromAccountID
// means the amount was minted (loan issuance, bot budget); a nil ToAccountID
// means it was burned (creation fees, loan repayment).
// Append-only time-series data — no Base embed, no soft deletes.
type Transaction struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	FromAccountID *string   `gorm:"type:uuid;index" json:"from_account_id,omitempty"`
	ToAccountID   *string   `gorm:"type:uuid;index" json:"to_account_id,omitempty"`
	Amount        int64     `gorm:"type:bigint;not null" json:"amount"`
	EntryKind     EntryKind `gorm:"not null;default:'cash'" json:"entry_kind"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}

// TradeSide is the direction of a trade from the account's perspective.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade records one executed buy or sell for historical display.
// Append-only; Price is the effective per-unit execution price.
type Trade struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID string    `gorm:"type:uuid;not null;index" json:"account_id"`
	AssetKind AssetKind `gorm:"not null;index:idx_trades_asset" json:"asset_kind"`
	AssetID   string    `gorm:"type:uuid;not null;index:idx_trades_asset" json:"asset_id"`
	Side      TradeSide `gorm:"not null" json:"side"`
	Quantity  float64   `gorm:"not null" json:"quantity"`
	Price     int64     `gorm:"type:bigint;not null" json:"price"`
	Total     int64     `gorm:"type:bigint;not null" json:"total"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}

// Sale records one marketplace purchase of a product. Bot purchases carry
// a nil BuyerID.
type Sale struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID string    `gorm:"type:uuid;not null;index" json:"product_id"`
	CompanyID string    `gorm:"type:uuid;not null;index" json:"company_id"`
	BuyerID   *string   `gorm:"type:uuid" json:"buyer_id,omitempty"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	UnitPrice int64     `gorm:"type:bigint;not null" json:"unit_price"`
	Total     int64     `gorm:"type:bigint;not null" json:"total"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New()
	}
	return nil
}
