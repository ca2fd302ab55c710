package services

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"magnate/internal/models"
	"magnate/internal/pagination"
	"magnate/internal/testutil"
)

func TestRecordCandle(t *testing.T) {
	t.Run("brackets_open_and_close", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHistoryService(db)

		now := time.Now()
		candle, err := svc.RecordCandle(db, models.AssetKindStock, "asset-1", 100, 110, now.Add(-time.Minute), now)
		testutil.AssertNoError(t, err)
		if candle.High != 110 || candle.Low != 100 {
			t.Errorf("expected high 110 low 100, got %d/%d", candle.High, candle.Low)
		}
		if candle.Volume != 0 {
			t.Errorf("expected zero volume without trades, got %f", candle.Volume)
		}
	})

	t.Run("folds_in_window_trades", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHistoryService(db)

		now := time.Now()
		inWindow := &models.Trade{
			AccountID: "acct", AssetKind: models.AssetKindStock, AssetID: "asset-2",
			Side: models.TradeSideBuy, Quantity: 5, Price: 130, Total: 650,
			CreatedAt: now.Add(-30 * time.Second),
		}
		outOfWindow := &models.Trade{
			AccountID: "acct", AssetKind: models.AssetKindStock, AssetID: "asset-2",
			Side: models.TradeSideSell, Quantity: 50, Price: 10, Total: 500,
			CreatedAt: now.Add(-time.Hour),
		}
		if err := db.Create(inWindow).Error; err != nil {
			t.Fatalf("failed to create trade: %v", err)
		}
		if err := db.Create(outOfWindow).Error; err != nil {
			t.Fatalf("failed to create trade: %v", err)
		}

		candle, err := svc.RecordCandle(db, models.AssetKindStock, "asset-2", 100, 110, now.Add(-time.Minute), now)
		testutil.AssertNoError(t, err)
		if candle.High != 130 {
			t.Errorf("expected high 130 from in-window trade, got %d", candle.High)
		}
		if candle.Low != 100 {
			t.Errorf("expected low 100, the hour-old trade is out of window, got %d", candle.Low)
		}
		if candle.Volume != 5 {
			t.Errorf("expected volume 5, got %f", candle.Volume)
		}
	})

	t.Run("rolls_back_with_the_enclosing_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHistoryService(db)

		now := time.Now()
		sentinel := errors.New("abort")
		err := db.Transaction(func(tx *gorm.DB) error {
			if _, err := svc.RecordCandle(tx, models.AssetKindStock, "asset-3", 100, 110, now.Add(-time.Minute), now); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected the rollback error, got %v", err)
		}
		var count int64
		db.Model(&models.Candle{}).Where("asset_id = ?", "asset-3").Count(&count)
		if count != 0 {
			t.Errorf("expected no candle after rollback, found %d", count)
		}
	})
}

func TestGetCandles(t *testing.T) {
	t.Run("newest_first_per_asset", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHistoryService(db)

		base := time.Now()
		for i := 0; i < 3; i++ {
			_, err := svc.RecordCandle(db, models.AssetKindCrypto, "coin-1", 100, 101,
				base.Add(time.Duration(i-1)*time.Minute), base.Add(time.Duration(i)*time.Minute))
			testutil.AssertNoError(t, err)
		}
		_, err := svc.RecordCandle(db, models.AssetKindCrypto, "coin-2", 50, 51, base.Add(-time.Minute), base)
		testutil.AssertNoError(t, err)

		page, err := svc.GetCandles(models.AssetKindCrypto, "coin-1", pagination.PageRequest{})
		testutil.AssertNoError(t, err)
		if page.TotalItems != 3 {
			t.Fatalf("expected 3 candles, got %d", page.TotalItems)
		}
		if !page.Data[0].TickAt.After(page.Data[2].TickAt) {
			t.Error("expected candles ordered newest first")
		}
	})
}
