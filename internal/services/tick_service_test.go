package services

import (
	"math/rand"
	"testing"

	"magnate/internal/locks"
	"magnate/internal/models"
	"magnate/internal/pagination"
	"magnate/internal/testutil"

	"gorm.io/gorm"
)

func setupTickTest(t *testing.T, botBudget int64) (*gorm.DB, *tickService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	ledger := NewLedgerService(db)
	loans := NewLoanService(db, ledger, 10_000_000, 288)
	demand := NewDemandService(db, ledger)
	history := NewHistoryService(db)
	svc := NewTickService(db, loans, demand, history, locks.NewKeyedMutex(), 288, botBudget).(*tickService)
	// Fixed seed keeps the price walk reproducible.
	svc.newRand = func() *rand.Rand { return rand.New(rand.NewSource(7)) }
	return db, svc
}

func TestExecuteTick(t *testing.T) {
	t.Run("advances_prices_and_records_audit_row", func(t *testing.T) {
		db, svc := setupTickTest(t, 10_000)
		owner := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, owner.ID)
		stock := testutil.CreateTestStock(t, db, company.ID, 10_000, 1_000)
		crypto := testutil.CreateTestCrypto(t, db, owner.ID, 5_000, 10_000)
		testutil.CreateTestProduct(t, db, company.ID, 100, 500)
		testutil.CreateTestLoan(t, db, owner.ID, 1_000_000, 0.05)

		record, err := svc.ExecuteTick()
		testutil.AssertNoError(t, err)
		if record.Sequence != 1 {
			t.Errorf("expected sequence 1, got %d", record.Sequence)
		}
		if record.StocksUpdated != 1 || record.CryptosUpdated != 1 {
			t.Errorf("expected 1 stock and 1 crypto updated, got %d/%d", record.StocksUpdated, record.CryptosUpdated)
		}
		if record.LoansAccrued != 1 {
			t.Errorf("expected 1 loan accrued, got %d", record.LoansAccrued)
		}
		if record.Errors != "" {
			t.Errorf("expected no step errors, got %s", record.Errors)
		}
		if record.Summary == "" {
			t.Error("expected a JSON summary")
		}

		// The stock price moved and the previous price was preserved.
		var stockAfter models.Stock
		db.First(&stockAfter, "id = ?", stock.ID)
		if stockAfter.PreviousPrice != 10_000 {
			t.Errorf("expected previous price 10000, got %d", stockAfter.PreviousPrice)
		}
		if stockAfter.Price < 1 {
			t.Errorf("price fell below the floor: %d", stockAfter.Price)
		}

		var cryptoAfter models.Cryptocurrency
		db.First(&cryptoAfter, "id = ?", crypto.ID)
		if cryptoAfter.CurrentPrice < 1 {
			t.Errorf("crypto price fell below the floor: %d", cryptoAfter.CurrentPrice)
		}
	})

	t.Run("two_ticks_produce_two_candles_per_asset", func(t *testing.T) {
		db, svc := setupTickTest(t, 0)
		owner := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, owner.ID)
		stock := testutil.CreateTestStock(t, db, company.ID, 10_000, 1_000)

		_, err := svc.ExecuteTick()
		testutil.AssertNoError(t, err)
		_, err = svc.ExecuteTick()
		testutil.AssertNoError(t, err)

		var candles int64
		db.Model(&models.Candle{}).Where("asset_kind = ? AND asset_id = ?", models.AssetKindStock, stock.ID).Count(&candles)
		if candles != 2 {
			t.Errorf("expected 2 candles, got %d", candles)
		}

		page, err := svc.GetTickRecords(pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 2 {
			t.Fatalf("expected 2 tick records, got %d", page.TotalItems)
		}
		if page.Data[0].Sequence != 2 || page.Data[1].Sequence != 1 {
			t.Errorf("expected sequences 2,1 newest first, got %d,%d", page.Data[0].Sequence, page.Data[1].Sequence)
		}

		// Adjacent candles chain: the later open equals the earlier close.
		var series []models.Candle
		db.Where("asset_id = ?", stock.ID).Order("tick_at ASC").Find(&series)
		if len(series) == 2 && series[1].Open != series[0].Close {
			t.Errorf("expected chained candles, close %d then open %d", series[0].Close, series[1].Open)
		}
	})

	t.Run("overlapping_tick_rejected", func(t *testing.T) {
		_, svc := setupTickTest(t, 0)

		svc.running.Lock()
		defer svc.running.Unlock()

		_, err := svc.ExecuteTick()
		testutil.AssertAppError(t, err, "TICK_IN_PROGRESS")
	})

	t.Run("empty_world_still_ticks", func(t *testing.T) {
		_, svc := setupTickTest(t, 10_000)

		record, err := svc.ExecuteTick()
		testutil.AssertNoError(t, err)
		if record.StocksUpdated != 0 || record.CryptosUpdated != 0 || record.BotPurchases != 0 {
			t.Error("expected an empty tick record")
		}
	})

	t.Run("bot_spend_lands_on_the_record", func(t *testing.T) {
		db, svc := setupTickTest(t, 50_000)
		owner := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, owner.ID)
		testutil.CreateTestProduct(t, db, company.ID, 500, 1_000)

		record, err := svc.ExecuteTick()
		testutil.AssertNoError(t, err)
		if record.BudgetSpent <= 0 {
			t.Error("expected bot budget spent")
		}
		if record.BotPurchases == 0 {
			t.Error("expected bot purchases recorded")
		}
	})
}

func TestAcquireTickLease(t *testing.T) {
	t.Run("degrades_to_process_mutex_off_postgres", func(t *testing.T) {
		_, svc := setupTickTest(t, 0)
		release, err := svc.acquireTickLease()
		testutil.AssertNoError(t, err)
		// Release must be callable even when no advisory lock was taken.
		release()
	})
}
