package services

import (
	"testing"

	"magnate/internal/models"
	"magnate/internal/testutil"
)

func TestCreatePlayerAccount(t *testing.T) {
	t.Run("mints_starter_grant", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)

		account, err := svc.CreatePlayerAccount("alice", 10_000)
		testutil.AssertNoError(t, err)
		if account.Balance != 10_000 {
			t.Errorf("expected balance 10000, got %d", account.Balance)
		}
		if account.Kind != models.AccountKindPlayer {
			t.Errorf("expected player kind, got %s", account.Kind)
		}

		// The grant shows up as a mint entry.
		var entries int64
		db.Model(&models.Transaction{}).Where("to_account_id = ? AND from_account_id IS NULL", account.ID).Count(&entries)
		if entries != 1 {
			t.Errorf("expected 1 mint entry, got %d", entries)
		}
	})

	t.Run("empty_name_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)

		_, err := svc.CreatePlayerAccount("", 10_000)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestCreateCompany(t *testing.T) {
	t.Run("burns_fee_and_creates_cash_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 1_000_000)
		owner := testutil.CreateTestPlayer(t, db, 2_000_000)

		company, err := svc.CreateCompany(owner.ID, "Widgets Inc")
		testutil.AssertNoError(t, err)
		if company.AccountID == "" {
			t.Fatal("expected company cash account")
		}
		if company.IsPublic {
			t.Error("expected company to start private")
		}

		var ownerAfter models.Account
		db.First(&ownerAfter, "id = ?", owner.ID)
		if ownerAfter.Balance != 1_000_000 {
			t.Errorf("expected owner balance 1000000 after fee, got %d", ownerAfter.Balance)
		}

		var companyAccount models.Account
		db.First(&companyAccount, "id = ?", company.AccountID)
		if companyAccount.Kind != models.AccountKindCompany {
			t.Errorf("expected company account kind, got %s", companyAccount.Kind)
		}
	})

	t.Run("insufficient_fee_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 1_000_000)
		owner := testutil.CreateTestPlayer(t, db, 999_999)

		_, err := svc.CreateCompany(owner.ID, "Widgets Inc")
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		// No orphaned company row.
		var companies int64
		db.Model(&models.Company{}).Where("owner_id = ?", owner.ID).Count(&companies)
		if companies != 0 {
			t.Errorf("expected no companies, got %d", companies)
		}
	})

	t.Run("company_account_cannot_own_company", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)
		owner := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, owner.ID)

		_, err := svc.CreateCompany(company.AccountID, "Shell Corp")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetHoldings(t *testing.T) {
	t.Run("enriches_with_price_and_unrealized_pnl", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)
		player := testutil.CreateTestPlayer(t, db, 0)
		company := testutil.CreateTestCompany(t, db, player.ID)
		stock := testutil.CreateTestStock(t, db, company.ID, 200, 10_000)
		testutil.CreateTestHolding(t, db, player.ID, models.AssetKindStock, stock.ID, 10, 150)

		views, err := svc.GetHoldings(player.ID)
		testutil.AssertNoError(t, err)
		if len(views) != 1 {
			t.Fatalf("expected 1 holding, got %d", len(views))
		}
		v := views[0]
		if v.CurrentPrice != 200 {
			t.Errorf("expected current price 200, got %d", v.CurrentPrice)
		}
		if v.MarketValue != 2_000 {
			t.Errorf("expected market value 2000, got %d", v.MarketValue)
		}
		if v.UnrealizedGainLoss != 500 {
			t.Errorf("expected unrealized gain 500, got %d", v.UnrealizedGainLoss)
		}
	})

	t.Run("unknown_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)

		_, err := svc.GetHoldings("missing")
		testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	})
}

func TestRequireCapability(t *testing.T) {
	t.Run("player_cannot_act_as_admin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)
		player := testutil.CreateTestPlayer(t, db, 0)

		_, err := svc.RequireCapability(player.ID, models.RoleAdmin)
		testutil.AssertAppError(t, err, "PERMISSION_DENIED")
	})

	t.Run("admin_passes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)
		admin := testutil.CreateTestAdmin(t, db)

		_, err := svc.RequireCapability(admin.ID, models.RoleAdmin)
		testutil.AssertNoError(t, err)
	})
}

func TestEnsureExchangeAccount(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		ledger := NewLedgerService(db)
		svc := NewAccountService(db, ledger, 0)

		first, err := svc.EnsureExchangeAccount(1_000_000)
		testutil.AssertNoError(t, err)
		second, err := svc.EnsureExchangeAccount(1_000_000)
		testutil.AssertNoError(t, err)
		if first.ID != second.ID {
			t.Error("expected the same exchange account on repeat calls")
		}
		if first.Kind != models.AccountKindSystem {
			t.Errorf("expected system kind, got %s", first.Kind)
		}
	})
}
