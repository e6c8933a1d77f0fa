package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"xpense/internal/core"
)

const installedClientJSON = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func testExpense() core.Expense {
	return core.Expense{
		ID:          uuid.MustParse("6f1c1a3e-1b7e-4e8a-9c43-2f8d7a7b0c11"),
		UserID:      uuid.MustParse("0b8e6c44-5c5e-4c2b-8a5e-8d3f0f2a9e77"),
		Amount:      core.Money{Cents: 1250},
		Category:    core.Food,
		Description: "Pizza",
		Date:        time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestExpenseRow(t *testing.T) {
	e := testExpense()

	row := expenseRow(e, time.UTC)
	want := []any{"2024-03-31", "Food", "Pizza", "12.50", e.ID.String(), e.UserID.String()}
	if len(row) != len(RowHeader) {
		t.Fatalf("row has %d columns, header has %d", len(row), len(RowHeader))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %v = %v, want %v", RowHeader[i], row[i], want[i])
		}
	}

	// The date column follows the configured location.
	row = expenseRow(e, time.FixedZone("CEST", 2*60*60))
	if row[0] != "2024-04-01" {
		t.Errorf("date in +02:00 = %v, want 2024-04-01", row[0])
	}
}

func TestJsonUnmarshalIndirection(t *testing.T) {
	data := []byte(`{"access_token":"test","token_type":"Bearer"}`)
	var token oauth2.Token

	if err := jsonUnmarshal(data, &token); err != nil {
		t.Fatalf("jsonUnmarshal failed: %v", err)
	}
	if token.AccessToken != "test" {
		t.Errorf("expected access token 'test', got %s", token.AccessToken)
	}

	if err := jsonUnmarshal([]byte(`{invalid json}`), &token); err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	_, err := newSheetsService(context.Background(), Credentials{})
	if !errors.Is(err, errMissingCredentials) {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	// An OAuth token without its client is not usable either.
	_, err = newSheetsService(context.Background(), Credentials{OAuthTokenFile: "token.json"})
	if !errors.Is(err, errMissingCredentials) {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNewSheetsService_MissingServiceAccountFile(t *testing.T) {
	_, err := newSheetsService(context.Background(), Credentials{
		ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestNewSheetsService_InvalidOAuthClient(t *testing.T) {
	dir := t.TempDir()
	_, err := newSheetsService(context.Background(), Credentials{
		OAuthClientFile: writeFile(t, dir, "client.json", `{}`),
		OAuthTokenFile:  writeFile(t, dir, "token.json", `{"access_token":"test"}`),
	})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}

func TestNewSheetsService_InvalidOAuthToken(t *testing.T) {
	dir := t.TempDir()
	_, err := newSheetsService(context.Background(), Credentials{
		OAuthClientFile: writeFile(t, dir, "client.json", installedClientJSON),
		OAuthTokenFile:  writeFile(t, dir, "token.json", `not json`),
	})
	if err == nil || !strings.Contains(err.Error(), "decode oauth token") {
		t.Fatalf("expected token decode error, got %v", err)
	}
}

func TestNewSheetsService_OAuthFiles(t *testing.T) {
	dir := t.TempDir()
	svc, err := newSheetsService(context.Background(), Credentials{
		OAuthClientFile: writeFile(t, dir, "client.json", installedClientJSON),
		OAuthTokenFile:  writeFile(t, dir, "token.json", `{"access_token":"test","token_type":"Bearer","refresh_token":"r"}`),
	})
	if err != nil {
		t.Fatalf("newSheetsService: %v", err)
	}
	if svc == nil || svc.Spreadsheets == nil {
		t.Fatal("expected a usable service")
	}
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "  "})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("expected missing spreadsheet id, got %v", err)
	}
}

func TestAppend_RejectsBeforeCallingAPI(t *testing.T) {
	c := &Client{sheetName: "Expenses", loc: time.UTC}

	invalid := testExpense()
	invalid.Amount = core.Money{}
	_, err := c.Append(context.Background(), invalid)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = c.Append(context.Background(), testExpense())
	if err == nil || err.Error() != "sheets service not initialized" {
		t.Fatalf("expected uninitialized service error, got %v", err)
	}
}

func TestNewHTTPClientWithPooling(t *testing.T) {
	c := newHTTPClientWithPooling()
	if c.Timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", c.Timeout)
	}
	if c.Transport == nil {
		t.Fatal("expected a custom transport")
	}
}
