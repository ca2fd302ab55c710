package services

import (
	"math/rand"
	"time"

	"gorm.io/gorm"

	"magnate/internal/models"
	"magnate/internal/pagination"
)

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreatePlayerAccount(name string, starterBalance int64) (*models.Account, error)
	CreateCompany(ownerID, name string) (*models.Company, error)
	GetAccountByID(accountID string) (*models.Account, error)
	GetCompanyByID(companyID string) (*models.Company, error)
	GetHoldings(accountID string) ([]HoldingView, error)
	// RequireCapability loads the actor account and verifies its role grants
	// the required capability. All privileged operations funnel through this.
	RequireCapability(actorID string, required models.Role) (*models.Account, error)
	// EnsureExchangeAccount creates (or returns) the system account that acts
	// as the market-making counterparty for all trades.
	EnsureExchangeAccount(reserve int64) (*models.Account, error)
}

// HoldingView is a holding enriched with the asset's current price.
type HoldingView struct {
	models.Holding
	Ticker             string `json:"ticker"`
	CurrentPrice       int64  `json:"current_price"`
	MarketValue        int64  `json:"market_value"`
	UnrealizedGainLoss int64  `json:"unrealized_gain_loss"`
}

// LedgerServicer defines the contract for atomic balance transfers.
// The *Tx variants run inside an existing GORM transaction so trading and
// loan operations can bundle balance moves with their own writes.
type LedgerServicer interface {
	Transfer(fromID, toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error)
	TransferTx(tx *gorm.DB, fromID, toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error)
	Mint(toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error)
	MintTx(tx *gorm.DB, toID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error)
	Burn(fromID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error)
	BurnTx(tx *gorm.DB, fromID string, amount int64, kind models.EntryKind, description string) (*models.Transaction, error)
	GetAccountTransactions(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

// StockServicer defines the contract for stock listings.
type StockServicer interface {
	IPO(actorID, companyID, ticker string, totalShares, price int64) (*models.Stock, error)
	GetStockByID(stockID string) (*models.Stock, error)
	ListStocks(page pagination.PageRequest) (*pagination.PageResponse[models.Stock], error)
}

// CryptoServicer defines the contract for player-created cryptocurrencies.
type CryptoServicer interface {
	CreateCryptocurrency(creatorID, ticker, name string, totalSupply, liquidity float64, initialPrice int64) (*models.Cryptocurrency, error)
	GetCryptoByID(cryptoID string) (*models.Cryptocurrency, error)
	ListCryptos(page pagination.PageRequest) (*pagination.PageResponse[models.Cryptocurrency], error)
}

// TradeOrder is a buy request sized either by unit quantity or by a cash
// amount converted at the current price. Exactly one should be positive.
type TradeOrder struct {
	Quantity    float64
	SpendAmount int64
}

// TradingServicer defines the contract for executing trades. All validation
// and writes for one order happen in a single atomic unit; a failed order
// leaves no partial state.
type TradingServicer interface {
	BuyStock(accountID, stockID string, order TradeOrder) (*models.Trade, error)
	SellStock(accountID, stockID string, quantity float64) (*models.Trade, error)
	BuyCrypto(accountID, cryptoID string, order TradeOrder) (*models.Trade, error)
	SellCrypto(accountID, cryptoID string, quantity float64) (*models.Trade, error)
	GetAssetTrades(kind models.AssetKind, assetID string, page pagination.PageRequest) (*pagination.PageResponse[models.Trade], error)
}

// LoanServicer defines the contract for loan issuance, repayment, and
// interest accrual.
type LoanServicer interface {
	CreateLoan(accountID string, principal int64, dailyRate float64) (*models.Loan, error)
	RepayLoan(accountID, loanID string, amount int64) (*models.Loan, error)
	ApplyLoanInterest(loanID string) (*models.Loan, error)
	// AccrueAll applies one tick of interest to every active loan and returns
	// the number of loans touched. Invoked by the tick engine.
	AccrueAll() (int, error)
	GetAccountLoans(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Loan], error)
}

// ProductServicer defines the contract for marketplace product listings.
type ProductServicer interface {
	CreateProduct(actorID, companyID, name string, price int64, quality int, stock int64) (*models.Product, error)
	RestockProduct(actorID, productID string, quantity int64) (*models.Product, error)
	SetProductActive(actorID, productID string, active bool) (*models.Product, error)
	ListCompanyProducts(companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error)
}

// BotPurchase describes one synthetic purchase made by the demand simulator.
type BotPurchase struct {
	ProductID string `json:"product_id"`
	CompanyID string `json:"company_id"`
	Quantity  int64  `json:"quantity"`
	Total     int64  `json:"total"`
}

// DemandResult summarizes one tick of simulated demand.
type DemandResult struct {
	Purchases  []BotPurchase `json:"purchases"`
	TotalSpent int64         `json:"total_spent"`
}

// DemandServicer defines the contract for the bot demand simulator.
type DemandServicer interface {
	// RunTick allocates the budget across active in-stock products. It is
	// deterministic given the random source and reads no player state.
	RunTick(r *rand.Rand, budget int64) (*DemandResult, error)
}

// HistoryServicer defines the contract for OHLCV candle persistence.
type HistoryServicer interface {
	// RecordCandle persists one candle for an asset covering (since, tickAt]
	// inside the caller's transaction.
	// High/low/volume are derived from trades executed inside the window.
	RecordCandle(tx *gorm.DB, kind models.AssetKind, assetID string, open, close int64, since, tickAt time.Time) (*models.Candle, error)
	GetCandles(kind models.AssetKind, assetID string, page pagination.PageRequest) (*pagination.PageResponse[models.Candle], error)
}

// TickServicer defines the contract for the tick engine.
type TickServicer interface {
	// ExecuteTick runs one full simulation step. Overlapping invocations are
	// rejected with ErrTickInProgress; step failures are recorded on the
	// TickRecord without aborting later steps.
	ExecuteTick() (*models.TickRecord, error)
	GetTickRecords(page pagination.PageRequest) (*pagination.PageResponse[models.TickRecord], error)
}

// AdminServicer defines the contract for moderation overrides. These bypass
// normal trade validation but still enforce the safe-integer and
// non-negativity invariants.
type AdminServicer interface {
	SetStockPrice(actorID, stockID string, price int64) (*models.Stock, error)
	SetAccountBalance(actorID, accountID string, balance int64) (*models.Account, error)
}
