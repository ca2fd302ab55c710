package models

// AccountKind represents the principal behind an account.
type AccountKind string

const (
	AccountKindPlayer  AccountKind = "player"
	AccountKindCompany AccountKind = "company"
	// AccountKindSystem accounts back privileged ledger operations: the
	// exchange account is the counterparty for market trades, and mint/burn
	// entries reference no account at all.
	AccountKindSystem AccountKind = "system"
)

// Role grants capabilities to a player account. Companies and system
// accounts carry no role.
type Role string

const (
	RolePlayer    Role = "player"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Account holds a single cash balance in minor currency units.
// Balances are never negative; every mutation goes through the ledger.
type Account struct {
	Base
	Kind     AccountKind `gorm:"not null;index" json:"kind"`
	Name     string      `gorm:"not null" json:"name"`
	Balance  int64       `gorm:"type:bigint;not null;default:0" json:"balance"`
	Role     Role        `gorm:"default:'player'" json:"role,omitempty"`
	IsActive bool        `gorm:"default:true" json:"is_active"`
}

// HasCapability reports whether the account's role grants the required role.
// Admins hold every capability; moderators hold moderator and below.
func (a *Account) HasCapability(required Role) bool {
	switch required {
	case RolePlayer:
		return true
	case RoleModerator:
		return a.Role == RoleModerator || a.Role == RoleAdmin
	case RoleAdmin:
		return a.Role == RoleAdmin
	}
	return false
}
