package models

// AssetKind distinguishes the two tradable asset classes.
type AssetKind string

const (
	AssetKindStock  AssetKind = "stock"
	AssetKindCrypto AssetKind = "crypto"
)

// Holding is one account's position in one asset. AvgPurchasePrice is the
// quantity-weighted mean of all buys, floored to the minor unit; sells
// reduce quantity but leave the average untouched.
type Holding struct {
	Base
	AccountID        string    `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_account_asset" json:"account_id"`
	AssetKind        AssetKind `gorm:"not null;uniqueIndex:uq_holdings_account_asset" json:"asset_kind"`
	AssetID          string    `gorm:"type:uuid;not null;uniqueIndex:uq_holdings_account_asset" json:"asset_id"`
	Quantity         float64   `gorm:"not null;default:0" json:"quantity"`
	AvgPurchasePrice int64     `gorm:"type:bigint;not null;default:0" json:"avg_purchase_price"`

	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
