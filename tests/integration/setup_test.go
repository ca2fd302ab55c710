package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"magnate/internal/handlers"
	"magnate/internal/locks"
	"magnate/internal/logger"
	"magnate/internal/middleware"
	"magnate/internal/models"
	"magnate/internal/services"
	"magnate/internal/validator"
)

// Economy tunables for the test stack. Starter balance is generous so flows
// can afford company and crypto creation fees without extra setup.
const (
	testStarterBalance  int64 = 10_000_000
	testCompanyFee      int64 = 1_000_000
	testCryptoFee       int64 = 2_000_000
	testLoanCeiling     int64 = 5_000_000
	testLoanDailyRate         = 0.05
	testHoldingCap            = 100_000.0
	testTicksPerDay           = 288
	testBotBudget       int64 = 500_000
	testExchangeReserve int64 = 100_000_000_000
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.Account{},
		&models.Company{},
		&models.Product{},
		&models.Stock{},
		&models.Cryptocurrency{},
		&models.Holding{},
		&models.Transaction{},
		&models.Trade{},
		&models.Sale{},
		&models.Loan{},
		&models.Candle{},
		&models.TickRecord{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services. One keyed mutex shared by trading, tick, and admin.
	assetLocks := locks.NewKeyedMutex()
	ledgerService := services.NewLedgerService(db)
	accountService := services.NewAccountService(db, ledgerService, testCompanyFee)
	stockService := services.NewStockService(db, accountService)
	cryptoService := services.NewCryptoService(db, ledgerService, testCryptoFee)
	productService := services.NewProductService(db, accountService)
	tradingService := services.NewTradingService(db, ledgerService, accountService, assetLocks, testHoldingCap)
	loanService := services.NewLoanService(db, ledgerService, testLoanCeiling, testTicksPerDay)
	demandService := services.NewDemandService(db, ledgerService)
	historyService := services.NewHistoryService(db)
	tickService := services.NewTickService(db, loanService, demandService, historyService, assetLocks, testTicksPerDay, testBotBudget)
	adminService := services.NewAdminService(db, accountService, assetLocks)

	if _, err := accountService.EnsureExchangeAccount(testExchangeReserve); err != nil {
		t.Fatalf("failed to ensure exchange account: %v", err)
	}

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService, ledgerService, testStarterBalance)
	marketHandler := handlers.NewMarketHandler(stockService, cryptoService, tradingService, historyService)
	productHandler := handlers.NewProductHandler(productService)
	tradingHandler := handlers.NewTradingHandler(tradingService)
	loanHandler := handlers.NewLoanHandler(loanService, testLoanDailyRate)
	simulationHandler := handlers.NewSimulationHandler(tickService, adminService, accountService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	v1.POST("/accounts/register", accountHandler.Register)
	v1.GET("/stocks", marketHandler.ListStocks)
	v1.GET("/cryptos", marketHandler.ListCryptos)
	v1.GET("/stocks/:id", marketHandler.GetStock)
	v1.GET("/cryptos/:id", marketHandler.GetCrypto)
	v1.GET("/assets/:kind/:id/candles", marketHandler.GetCandles)
	v1.GET("/assets/:kind/:id/trades", marketHandler.GetTrades)
	v1.GET("/ticks", simulationHandler.ListTickRecords)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/me", accountHandler.GetMe)
	protected.GET("/me/holdings", accountHandler.GetHoldings)
	protected.GET("/me/transactions", accountHandler.GetTransactions)
	protected.POST("/transfers", accountHandler.CreateTransfer)

	companies := protected.Group("/companies")
	companies.POST("", accountHandler.CreateCompany)
	companies.GET("/:id", accountHandler.GetCompany)
	companies.GET("/:id/products", productHandler.ListCompanyProducts)

	products := protected.Group("/products")
	products.POST("", productHandler.CreateProduct)
	products.POST("/:id/restock", productHandler.RestockProduct)
	products.PUT("/:id/active", productHandler.SetProductActive)

	protected.POST("/stocks/ipo", marketHandler.IPO)
	protected.POST("/cryptos", marketHandler.CreateCrypto)
	protected.POST("/assets/:kind/:id/buy", tradingHandler.Buy)
	protected.POST("/assets/:kind/:id/sell", tradingHandler.Sell)

	loans := protected.Group("/loans")
	loans.POST("", loanHandler.CreateLoan)
	loans.GET("", loanHandler.ListLoans)
	loans.POST("/:id/repay", loanHandler.RepayLoan)

	admin := protected.Group("/admin")
	admin.POST("/tick", simulationHandler.ExecuteTick)
	admin.PUT("/stocks/:id/price", simulationHandler.SetStockPrice)
	admin.PUT("/accounts/:id/balance", simulationHandler.SetAccountBalance)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerPlayer registers a player account and returns its token and ID.
func (app *testApp) registerPlayer(t *testing.T, name string) (token, accountID string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q}`, name)
	rec := app.request("POST", "/api/v1/accounts/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	account := result["account"].(map[string]interface{})
	return result["token"].(string), account["id"].(string)
}

// registerAdmin creates an admin account directly and returns its token and ID.
func (app *testApp) registerAdmin(t *testing.T, name string) (token, accountID string) {
	t.Helper()
	account := &models.Account{
		Kind:     models.AccountKindPlayer,
		Name:     name,
		Balance:  testStarterBalance,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := app.DB.Create(account).Error; err != nil {
		t.Fatalf("failed to create admin account: %v", err)
	}
	tok, err := middleware.GenerateSessionToken(account)
	if err != nil {
		t.Fatalf("failed to generate admin token: %v", err)
	}
	return tok, account.ID
}

// createCompany founds a company for the token's account and returns its ID
// and company account ID.
func (app *testApp) createCompany(t *testing.T, token, name string) (companyID, companyAccountID string) {
	t.Helper()
	rec := app.request("POST", "/api/v1/companies", fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create company failed: %d %s", rec.Code, rec.Body.String())
	}
	company := parseJSON(t, rec)["company"].(map[string]interface{})
	return company["id"].(string), company["account_id"].(string)
}

// accountBalance reads an account balance straight from the database.
func (app *testApp) accountBalance(t *testing.T, accountID string) int64 {
	t.Helper()
	var account models.Account
	if err := app.DB.First(&account, "id = ?", accountID).Error; err != nil {
		t.Fatalf("failed to load account %s: %v", accountID, err)
	}
	return account.Balance
}
