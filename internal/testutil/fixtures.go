package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"magnate/internal/models"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestPlayer creates an active player account with the given balance.
func CreateTestPlayer(t *testing.T, db *gorm.DB, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		Kind:     models.AccountKindPlayer,
		Name:     fmt.Sprintf("Player %d", nextID()),
		Balance:  balance,
		Role:     models.RolePlayer,
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test player: %v", err)
	}
	return account
}

// CreateTestAdmin creates an active admin account.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()

	account := &models.Account{
		Kind:     models.AccountKindPlayer,
		Name:     fmt.Sprintf("Admin %d", nextID()),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test admin: %v", err)
	}
	return account
}

// CreateTestExchange creates the system exchange account with a large float.
func CreateTestExchange(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()

	account := &models.Account{
		Kind:     models.AccountKindSystem,
		Name:     "Exchange",
		Balance:  100_000_000_000,
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test exchange account: %v", err)
	}
	return account
}

// CreateTestCompany creates a company with its own cash account.
func CreateTestCompany(t *testing.T, db *gorm.DB, ownerID string) *models.Company {
	t.Helper()

	name := fmt.Sprintf("Company %d", nextID())
	account := &models.Account{
		Kind:     models.AccountKindCompany,
		Name:     name,
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test company account: %v", err)
	}

	company := &models.Company{
		AccountID: account.ID,
		OwnerID:   ownerID,
		Name:      name,
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}
	return company
}

// CreateTestProduct creates an active product listing for a company.
func CreateTestProduct(t *testing.T, db *gorm.DB, companyID string, price, stock int64) *models.Product {
	t.Helper()

	product := &models.Product{
		CompanyID: companyID,
		Name:      fmt.Sprintf("Product %d", nextID()),
		Price:     price,
		Quality:   3,
		Stock:     stock,
		IsActive:  true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

// CreateTestStock lists a stock for a company at the given price.
func CreateTestStock(t *testing.T, db *gorm.DB, companyID string, price, totalShares int64) *models.Stock {
	t.Helper()

	stock := &models.Stock{
		CompanyID:     companyID,
		Ticker:        fmt.Sprintf("TST%d", nextID()),
		Price:         price,
		PreviousPrice: price,
		AnchorPrice:   price,
		TotalShares:   totalShares,
		Volatility:    0.02,
	}
	if err := db.Create(stock).Error; err != nil {
		t.Fatalf("failed to create test stock: %v", err)
	}
	if err := db.Model(&models.Company{}).Where("id = ?", companyID).Update("is_public", true).Error; err != nil {
		t.Fatalf("failed to mark test company public: %v", err)
	}
	return stock
}

// CreateTestCrypto creates a coin with the given price and liquidity depth.
func CreateTestCrypto(t *testing.T, db *gorm.DB, creatorID string, price int64, liquidity float64) *models.Cryptocurrency {
	t.Helper()

	crypto := &models.Cryptocurrency{
		CreatorID:            creatorID,
		Ticker:               fmt.Sprintf("COIN%d", nextID()),
		Name:                 fmt.Sprintf("Coin %d", nextID()),
		CurrentPrice:         price,
		CirculatingSupply:    1_000_000,
		TotalSupply:          1_000_000,
		Liquidity:            liquidity,
		BaseVolatility:       0.05,
		Volatility:           0.05,
		LastVolatilityUpdate: time.Now(),
	}
	if err := db.Create(crypto).Error; err != nil {
		t.Fatalf("failed to create test crypto: %v", err)
	}
	return crypto
}

// CreateTestHolding creates a position for an account in an asset.
func CreateTestHolding(t *testing.T, db *gorm.DB, accountID string, kind models.AssetKind, assetID string, quantity float64, avgPrice int64) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		AccountID:        accountID,
		AssetKind:        kind,
		AssetID:          assetID,
		Quantity:         quantity,
		AvgPurchasePrice: avgPrice,
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return holding
}

// CreateTestLoan creates an active loan for an account.
func CreateTestLoan(t *testing.T, db *gorm.DB, accountID string, principal int64, dailyRate float64) *models.Loan {
	t.Helper()

	loan := &models.Loan{
		AccountID:        accountID,
		Principal:        principal,
		RemainingBalance: principal,
		DailyRate:        dailyRate,
		Status:           models.LoanStatusActive,
		LastInterestAt:   time.Now(),
	}
	if err := db.Create(loan).Error; err != nil {
		t.Fatalf("failed to create test loan: %v", err)
	}
	return loan
}
