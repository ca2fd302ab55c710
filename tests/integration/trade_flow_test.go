package integration

import (
	"fmt"
	"net/http"
	"testing"

	"magnate/internal/uuid"
)

func TestTradeFlow_StockRoundTrip(t *testing.T) {
	app := setupApp(t)
	token, accountID := app.registerPlayer(t, "Stock Trader")

	// Starter grant lands on registration.
	rec := app.request("GET", "/api/v1/me", "", token)
	me := parseJSON(t, rec)["account"].(map[string]interface{})
	if me["balance"].(float64) != float64(testStarterBalance) {
		t.Fatalf("expected starter balance %d, got %.0f", testStarterBalance, me["balance"].(float64))
	}

	// Found a company (fee burned) and take it public.
	companyID, _ := app.createCompany(t, token, "Acme Industrial")
	if got := app.accountBalance(t, accountID); got != testStarterBalance-testCompanyFee {
		t.Fatalf("expected balance %d after company fee, got %d", testStarterBalance-testCompanyFee, got)
	}

	rec = app.request("POST", "/api/v1/stocks/ipo",
		fmt.Sprintf(`{"company_id":%q,"ticker":"acme","total_shares":1000000,"price":100}`, companyID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("IPO failed: %d %s", rec.Code, rec.Body.String())
	}
	stock := parseJSON(t, rec)["stock"].(map[string]interface{})
	stockID := stock["id"].(string)
	if stock["ticker"] != "ACME" {
		t.Errorf("expected ticker normalized to ACME, got %v", stock["ticker"])
	}

	// Market cap is derived from price and share count.
	rec = app.request("GET", "/api/v1/stocks/"+stockID, "", "")
	detail := parseJSON(t, rec)
	if detail["market_cap"].(float64) != 100_000_000 {
		t.Errorf("expected market cap 100000000, got %.0f", detail["market_cap"].(float64))
	}

	balanceAfterIPO := app.accountBalance(t, accountID)

	// Buy 50 shares by quantity.
	rec = app.request("POST", fmt.Sprintf("/api/v1/assets/stock/%s/buy", stockID),
		`{"quantity":50}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d %s", rec.Code, rec.Body.String())
	}
	trade := parseJSON(t, rec)["trade"].(map[string]interface{})
	if trade["total"].(float64) != 5000 {
		t.Errorf("expected trade total 5000, got %.0f", trade["total"].(float64))
	}
	if got := app.accountBalance(t, accountID); got != balanceAfterIPO-5000 {
		t.Errorf("expected balance %d after buy, got %d", balanceAfterIPO-5000, got)
	}

	// Buy another tranche sized by cash to spend.
	rec = app.request("POST", fmt.Sprintf("/api/v1/assets/stock/%s/buy", stockID),
		`{"spend_amount":10000}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("spend buy failed: %d %s", rec.Code, rec.Body.String())
	}

	// Holdings endpoint shows the combined position with enrichment.
	rec = app.request("GET", "/api/v1/me/holdings", "", token)
	holdings := parseJSON(t, rec)["holdings"].([]interface{})
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	holding := holdings[0].(map[string]interface{})
	if holding["quantity"].(float64) != 150 {
		t.Errorf("expected quantity 150, got %v", holding["quantity"])
	}
	if holding["avg_purchase_price"].(float64) != 100 {
		t.Errorf("expected avg purchase price 100, got %v", holding["avg_purchase_price"])
	}
	if holding["ticker"] != "ACME" {
		t.Errorf("expected holding ticker ACME, got %v", holding["ticker"])
	}

	// Sell everything back at the same price; cash round-trips.
	rec = app.request("POST", fmt.Sprintf("/api/v1/assets/stock/%s/sell", stockID),
		`{"quantity":150}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("sell failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := app.accountBalance(t, accountID); got != balanceAfterIPO {
		t.Errorf("expected balance restored to %d, got %d", balanceAfterIPO, got)
	}

	rec = app.request("GET", "/api/v1/me/holdings", "", token)
	holdings = parseJSON(t, rec)["holdings"].([]interface{})
	if len(holdings) != 0 {
		t.Errorf("expected no holdings after full sale, got %d", len(holdings))
	}

	// Trade history records all three executions, newest first.
	rec = app.request("GET", fmt.Sprintf("/api/v1/assets/stock/%s/trades", stockID), "", "")
	trades := parseJSON(t, rec)
	if trades["total_items"].(float64) != 3 {
		t.Errorf("expected 3 trades, got %.0f", trades["total_items"].(float64))
	}
}

func TestTradeFlow_CryptoCreationAndTrading(t *testing.T) {
	app := setupApp(t)
	creatorToken, creatorID := app.registerPlayer(t, "Coin Creator")
	buyerToken, buyerID := app.registerPlayer(t, "Coin Buyer")

	// Creation burns the fee and grants the creator the full supply.
	rec := app.request("POST", "/api/v1/cryptos",
		`{"ticker":"DOGE","name":"Dogecoin","total_supply":1000000,"liquidity":1000000,"initial_price":100}`, creatorToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("crypto creation failed: %d %s", rec.Code, rec.Body.String())
	}
	crypto := parseJSON(t, rec)["crypto"].(map[string]interface{})
	cryptoID := crypto["id"].(string)
	if got := app.accountBalance(t, creatorID); got != testStarterBalance-testCryptoFee {
		t.Errorf("expected creator balance %d after fee, got %d", testStarterBalance-testCryptoFee, got)
	}

	rec = app.request("GET", "/api/v1/me/holdings", "", creatorToken)
	holdings := parseJSON(t, rec)["holdings"].([]interface{})
	if len(holdings) != 1 {
		t.Fatalf("expected creator to hold the supply, got %d holdings", len(holdings))
	}
	if q := holdings[0].(map[string]interface{})["quantity"].(float64); q != 1_000_000 {
		t.Errorf("expected supply holding 1000000, got %v", q)
	}

	// A tiny buy against deep liquidity executes at the quoted price.
	buyerBefore := app.accountBalance(t, buyerID)
	rec = app.request("POST", fmt.Sprintf("/api/v1/assets/crypto/%s/buy", cryptoID),
		`{"quantity":100}`, buyerToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("crypto buy failed: %d %s", rec.Code, rec.Body.String())
	}
	trade := parseJSON(t, rec)["trade"].(map[string]interface{})
	if trade["total"].(float64) != 10000 {
		t.Errorf("expected trade total 10000, got %.0f", trade["total"].(float64))
	}
	if got := app.accountBalance(t, buyerID); got != buyerBefore-10000 {
		t.Errorf("expected buyer balance %d, got %d", buyerBefore-10000, got)
	}

	// Duplicate tickers are rejected across the shared namespace.
	rec = app.request("POST", "/api/v1/cryptos",
		`{"ticker":"DOGE","name":"Dogecoin Again","total_supply":1000,"liquidity":1000,"initial_price":100}`, buyerToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "DUPLICATE_TICKER" {
		t.Errorf("expected DUPLICATE_TICKER, got %v", errObj["code"])
	}
}

func TestTradeFlow_Rejections(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerPlayer(t, "Edge Case")

	// Unknown asset.
	rec := app.request("POST", fmt.Sprintf("/api/v1/assets/stock/%s/buy", uuid.New()),
		`{"quantity":1}`, token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "ASSET_NOT_FOUND" {
		t.Errorf("expected ASSET_NOT_FOUND, got %v", errObj["code"])
	}

	// No token.
	rec = app.request("POST", fmt.Sprintf("/api/v1/assets/stock/%s/buy", uuid.New()),
		`{"quantity":1}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Selling with no position.
	companyID, _ := app.createCompany(t, token, "Edge Co")
	rec = app.request("POST", "/api/v1/stocks/ipo",
		fmt.Sprintf(`{"company_id":%q,"ticker":"EDGE","total_shares":1000,"price":100}`, companyID), token)
	stockID := parseJSON(t, rec)["stock"].(map[string]interface{})["id"].(string)

	rec = app.request("POST", fmt.Sprintf("/api/v1/assets/stock/%s/sell", stockID),
		`{"quantity":5}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj = parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INSUFFICIENT_HOLDINGS" {
		t.Errorf("expected INSUFFICIENT_HOLDINGS, got %v", errObj["code"])
	}
}
