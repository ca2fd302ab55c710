package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"magnate/internal/config"
	"magnate/internal/database"
	"magnate/internal/handlers"
	"magnate/internal/locks"
	"magnate/internal/logger"
	"magnate/internal/middleware"
	"magnate/internal/services"
	"magnate/internal/validator"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services. Trading and the tick engine share one keyed
	// mutex so per-asset serialization holds across both.
	db := dbManager.DB()
	assetLocks := locks.NewKeyedMutex()
	ledgerService := services.NewLedgerService(db)
	accountService := services.NewAccountService(db, ledgerService, appConfig.CompanyCreationFee)
	stockService := services.NewStockService(db, accountService)
	cryptoService := services.NewCryptoService(db, ledgerService, appConfig.CryptoCreationFee)
	productService := services.NewProductService(db, accountService)
	tradingService := services.NewTradingService(db, ledgerService, accountService, assetLocks, appConfig.StockHoldingCap)
	loanService := services.NewLoanService(db, ledgerService, appConfig.LoanCeiling, appConfig.TicksPerDay)
	demandService := services.NewDemandService(db, ledgerService)
	historyService := services.NewHistoryService(db)
	tickService := services.NewTickService(db, loanService, demandService, historyService, assetLocks, appConfig.TicksPerDay, appConfig.BotBudgetPerTick)
	adminService := services.NewAdminService(db, accountService, assetLocks)

	// The exchange float must exist before the first trade.
	if _, err := accountService.EnsureExchangeAccount(appConfig.ExchangeReserve); err != nil {
		return fmt.Errorf("failed to ensure exchange account: %w", err)
	}

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(accountService, ledgerService, appConfig.StarterBalance)
	marketHandler := handlers.NewMarketHandler(stockService, cryptoService, tradingService, historyService)
	productHandler := handlers.NewProductHandler(productService)
	tradingHandler := handlers.NewTradingHandler(tradingService)
	loanHandler := handlers.NewLoanHandler(loanService, appConfig.LoanDailyRate)
	simulationHandler := handlers.NewSimulationHandler(tickService, adminService, accountService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/accounts/register", accountHandler.Register)
	v1.GET("/stocks", marketHandler.ListStocks)
	v1.GET("/cryptos", marketHandler.ListCryptos)
	v1.GET("/stocks/:id", marketHandler.GetStock)
	v1.GET("/cryptos/:id", marketHandler.GetCrypto)
	v1.GET("/assets/:kind/:id/candles", marketHandler.GetCandles)
	v1.GET("/assets/:kind/:id/trades", marketHandler.GetTrades)
	v1.GET("/ticks", simulationHandler.ListTickRecords)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/me", accountHandler.GetMe)
	protected.GET("/me/holdings", accountHandler.GetHoldings)
	protected.GET("/me/transactions", accountHandler.GetTransactions)
	protected.POST("/transfers", accountHandler.CreateTransfer)

	// Company routes
	companies := protected.Group("/companies")
	companies.POST("", accountHandler.CreateCompany)
	companies.GET("/:id", accountHandler.GetCompany)
	companies.GET("/:id/products", productHandler.ListCompanyProducts)

	// Product routes
	products := protected.Group("/products")
	products.POST("", productHandler.CreateProduct)
	products.POST("/:id/restock", productHandler.RestockProduct)
	products.PUT("/:id/active", productHandler.SetProductActive)

	// Market routes
	protected.POST("/stocks/ipo", marketHandler.IPO)
	protected.POST("/cryptos", marketHandler.CreateCrypto)
	protected.POST("/assets/:kind/:id/buy", tradingHandler.Buy)
	protected.POST("/assets/:kind/:id/sell", tradingHandler.Sell)

	// Loan routes
	loans := protected.Group("/loans")
	loans.POST("", loanHandler.CreateLoan)
	loans.GET("", loanHandler.ListLoans)
	loans.POST("/:id/repay", loanHandler.RepayLoan)

	// Admin routes
	admin := protected.Group("/admin")
	admin.POST("/tick", simulationHandler.ExecuteTick)
	admin.PUT("/stocks/:id/price", simulationHandler.SetStockPrice)
	admin.PUT("/accounts/:id/balance", simulationHandler.SetAccountBalance)

	logger.Named("api").Infof("Starting server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
