package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"magnate/internal/config"
	"magnate/internal/database"
	"magnate/internal/locks"
	"magnate/internal/logger"
	"magnate/internal/services"
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

	db := dbManager.DB()
	assetLocks := locks.NewKeyedMutex()
	ledgerService := services.NewLedgerService(db)
	accountService := services.NewAccountService(db, ledgerService, appConfig.CompanyCreationFee)
	loanService := services.NewLoanService(db, ledgerService, appConfig.LoanCeiling, appConfig.TicksPerDay)
	demandService := services.NewDemandService(db, ledgerService)
	historyService := services.NewHistoryService(db)
	tickService := services.NewTickService(db, loanService, demandService, historyService, assetLocks, appConfig.TicksPerDay, appConfig.BotBudgetPerTick)

	if _, err := accountService.EnsureExchangeAccount(appConfig.ExchangeReserve); err != nil {
		return fmt.Errorf("failed to ensure exchange account: %w", err)
	}

	log := logger.Named("worker")

	runTick := func() {
		record, err := tickService.ExecuteTick()
		if err != nil {
			log.Errorw("Tick failed", "error", err)
			return
		}
		log.Infow("Tick executed", "sequence", record.Sequence)
	}

	// RUN_ONCE is used by cron-style deployments that schedule externally.
	if os.Getenv("RUN_ONCE") == "true" {
		runTick()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("Starting tick worker", "interval", appConfig.TickInterval)

	ticker := time.NewTicker(appConfig.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down tick worker")
			return nil
		case <-ticker.C:
			runTick()
		}
	}
}
