package services

import (
	"testing"

	"magnate/internal/locks"
	"magnate/internal/models"
	"magnate/internal/testutil"

	"gorm.io/gorm"
)

func setupAdminTest(t *testing.T) (*gorm.DB, AdminServicer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	ledger := NewLedgerService(db)
	accounts := NewAccountService(db, ledger, 0)
	return db, NewAdminService(db, accounts, locks.NewKeyedMutex())
}

func TestSetStockPrice(t *testing.T) {
	t.Run("overrides_price_and_reanchors", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		admin := testutil.CreateTestAdmin(t, db)
		owner := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, owner.ID)
		stock := testutil.CreateTestStock(t, db, company.ID, 10_000, 1_000)

		updated, err := svc.SetStockPrice(admin.ID, stock.ID, 2_500)
		testutil.AssertNoError(t, err)
		if updated.Price != 2_500 {
			t.Errorf("expected price 2500, got %d", updated.Price)
		}

		var after models.Stock
		db.First(&after, "id = ?", stock.ID)
		if after.AnchorPrice != 2_500 {
			t.Errorf("expected anchor re-seeded at 2500, got %d", after.AnchorPrice)
		}
		if after.PreviousPrice != 10_000 {
			t.Errorf("expected previous price 10000, got %d", after.PreviousPrice)
		}
	})

	t.Run("player_rejected", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		player := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, player.ID)
		stock := testutil.CreateTestStock(t, db, company.ID, 10_000, 1_000)

		_, err := svc.SetStockPrice(player.ID, stock.ID, 2_500)
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})

	t.Run("below_floor_rejected", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		admin := testutil.CreateTestAdmin(t, db)
		owner := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, owner.ID)
		stock := testutil.CreateTestStock(t, db, company.ID, 10_000, 1_000)

		_, err := svc.SetStockPrice(admin.ID, stock.ID, 0)
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})
}

func TestSetAccountBalance(t *testing.T) {
	t.Run("records_delta_in_ledger", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		admin := testutil.CreateTestAdmin(t, db)
		player := testutil.CreateTestPlayer(t, db, 1_000)

		updated, err := svc.SetAccountBalance(admin.ID, player.ID, 5_000)
		testutil.AssertNoError(t, err)
		if updated.Balance != 5_000 {
			t.Errorf("expected balance 5000, got %d", updated.Balance)
		}

		// The 4000 top-up is a mint entry.
		var entry models.Transaction
		err = db.Where("to_account_id = ? AND from_account_id IS NULL", player.ID).First(&entry).Error
		testutil.AssertNoError(t, err)
		if entry.Amount != 4_000 {
			t.Errorf("expected mint of 4000, got %d", entry.Amount)
		}
	})

	t.Run("reduction_recorded_as_burn", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		admin := testutil.CreateTestAdmin(t, db)
		player := testutil.CreateTestPlayer(t, db, 9_000)

		_, err := svc.SetAccountBalance(admin.ID, player.ID, 1_000)
		testutil.AssertNoError(t, err)

		var entry models.Transaction
		err = db.Where("from_account_id = ? AND to_account_id IS NULL", player.ID).First(&entry).Error
		testutil.AssertNoError(t, err)
		if entry.Amount != 8_000 {
			t.Errorf("expected burn of 8000, got %d", entry.Amount)
		}
	})

	t.Run("negative_balance_rejected", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		admin := testutil.CreateTestAdmin(t, db)
		player := testutil.CreateTestPlayer(t, db, 1_000)

		_, err := svc.SetAccountBalance(admin.ID, player.ID, -1)
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})

	t.Run("moderator_rejected", func(t *testing.T) {
		db, svc := setupAdminTest(t)
		moderator := testutil.CreateTestPlayer(t, db, 0)
		db.Model(moderator).Update("role", models.RoleModerator)
		player := testutil.CreateTestPlayer(t, db, 1_000)

		_, err := svc.SetAccountBalance(moderator.ID, player.ID, 5_000)
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})
}
