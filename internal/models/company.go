package models

// Company represents a player-run business. Its cash lives in a dedicated
// company account; products and (after an IPO) a stock hang off it.
type Company struct {
	Base
	AccountID  string  `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	OwnerID    string  `gorm:"type:uuid;not null;index" json:"owner_id"` // owning player account
	Name       string  `gorm:"not null" json:"name"`
	Reputation float64 `gorm:"not null;default:2.5" json:"reputation"` // 0..5, feeds bot demand weighting
	IsPublic   bool    `gorm:"default:false" json:"is_public"`

	// Relationships
	Account  Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Products []Product `gorm:"foreignKey:CompanyID" json:"products,omitempty"`
}

// Product is a marketplace listing owned by a company. The demand simulator
// buys from active, in-stock products each tick.
type Product struct {
	Base
	CompanyID    string `gorm:"type:uuid;not null;index" json:"company_id"`
	Name         string `gorm:"not null" json:"name"`
	Price        int64  `gorm:"type:bigint;not null" json:"price"`
	Quality      int    `gorm:"not null;default:3" json:"quality"` // 1..5 rating
	Stock        int64  `gorm:"not null;default:0" json:"stock"`
	TotalSold    int64  `gorm:"not null;default:0" json:"total_sold"`
	TotalRevenue int64  `gorm:"type:bigint;not null;default:0" json:"total_revenue"`
	RecentSales  int64  `gorm:"not null;default:0" json:"recent_sales"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	Company Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}
