package models

import "time"

// LoanStatus is the lifecycle state of a loan. Defaulted is a reserved
// status for future policy; nothing transitions into it yet.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusPaid      LoanStatus = "paid"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// Loan is a player debt with daily compounding interest. RemainingBalance
// rises through accrual and falls through repayment; the loan flips to paid
// exactly when it reaches zero and is immutable from then on.
type Loan struct {
	Base
	AccountID        string     `gorm:"type:uuid;not null;index" json:"account_id"`
	Principal        int64      `gorm:"type:bigint;not null" json:"principal"`
	RemainingBalance int64      `gorm:"type:bigint;not null" json:"remaining_balance"`
	DailyRate        float64    `gorm:"not null" json:"daily_rate"` // fraction per day, 0.05 = 5%/day
	AccruedInterest  int64      `gorm:"type:bigint;not null;default:0" json:"accrued_interest"`
	Status           LoanStatus `gorm:"not null;default:'active';index" json:"status"`
	LastInterestAt   time.Time  `json:"last_interest_at"`

	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
