package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAccountFlow_RegisterAndInspect(t *testing.T) {
	app := setupApp(t)
	token, accountID := app.registerPlayer(t, "Fresh Player")

	rec := app.request("GET", "/api/v1/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	account := parseJSON(t, rec)["account"].(map[string]interface{})
	if account["id"] != accountID {
		t.Errorf("expected account %s, got %v", accountID, account["id"])
	}
	if account["kind"] != "player" {
		t.Errorf("expected kind player, got %v", account["kind"])
	}

	// The starter grant shows up as a mint on the ledger.
	rec = app.request("GET", "/api/v1/me/transactions", "", token)
	transactions := parseJSON(t, rec)
	if transactions["total_items"].(float64) != 1 {
		t.Fatalf("expected 1 transaction, got %.0f", transactions["total_items"].(float64))
	}
	entry := transactions["data"].([]interface{})[0].(map[string]interface{})
	if entry["from_account_id"] != nil {
		t.Errorf("expected minted entry with nil source, got %v", entry["from_account_id"])
	}
	if entry["amount"].(float64) != float64(testStarterBalance) {
		t.Errorf("expected amount %d, got %.0f", testStarterBalance, entry["amount"].(float64))
	}
}

func TestAccountFlow_DirectTransfer(t *testing.T) {
	app := setupApp(t)
	tokenA, idA := app.registerPlayer(t, "Sender")
	_, idB := app.registerPlayer(t, "Receiver")

	rec := app.request("POST", "/api/v1/transfers",
		fmt.Sprintf(`{"to_account_id":%q,"amount":250000,"description":"Seed capital"}`, idB), tokenA)
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer failed: %d %s", rec.Code, rec.Body.String())
	}

	if got := app.accountBalance(t, idA); got != testStarterBalance-250_000 {
		t.Errorf("expected sender balance %d, got %d", testStarterBalance-250_000, got)
	}
	if got := app.accountBalance(t, idB); got != testStarterBalance+250_000 {
		t.Errorf("expected receiver balance %d, got %d", testStarterBalance+250_000, got)
	}

	// Self-transfers are rejected.
	rec = app.request("POST", "/api/v1/transfers",
		fmt.Sprintf(`{"to_account_id":%q,"amount":1000}`, idA), tokenA)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self-transfer, got %d", rec.Code)
	}

	// Transfers above the balance are rejected and change nothing.
	rec = app.request("POST", "/api/v1/transfers",
		fmt.Sprintf(`{"to_account_id":%q,"amount":999999999}`, idB), tokenA)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	errObj := parseJSON(t, rec)["error"].(map[string]interface{})
	if errObj["code"] != "INSUFFICIENT_BALANCE" {
		t.Errorf("expected INSUFFICIENT_BALANCE, got %v", errObj["code"])
	}
	if got := app.accountBalance(t, idA); got != testStarterBalance-250_000 {
		t.Errorf("expected sender balance unchanged, got %d", got)
	}
}

func TestAccountFlow_CompanyFounding(t *testing.T) {
	app := setupApp(t)
	token, accountID := app.registerPlayer(t, "Founder")

	companyID, companyAccountID := app.createCompany(t, token, "Founders Inc")

	// Fee burned from the founder, company account starts empty.
	if got := app.accountBalance(t, accountID); got != testStarterBalance-testCompanyFee {
		t.Errorf("expected founder balance %d, got %d", testStarterBalance-testCompanyFee, got)
	}
	if got := app.accountBalance(t, companyAccountID); got != 0 {
		t.Errorf("expected company balance 0, got %d", got)
	}

	rec := app.request("GET", "/api/v1/companies/"+companyID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	company := parseJSON(t, rec)["company"].(map[string]interface{})
	if company["is_public"] != false {
		t.Errorf("expected private company, got %v", company["is_public"])
	}
	if company["owner_id"] != accountID {
		t.Errorf("expected owner %s, got %v", accountID, company["owner_id"])
	}
}
