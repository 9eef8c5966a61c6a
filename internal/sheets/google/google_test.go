package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"smartspend/internal/core"
	"smartspend/internal/log"
)

type fakeSheets struct {
	mu          sync.Mutex
	calls       []string
	failClears  int
	lastWritten [][]interface{}
	stored      [][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.calls = append(f.calls, "clear")
		if f.failClears > 0 {
			f.failClears--
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"error":{"code":503,"message":"backend unavailable"}}`)
			return
		}
		f.stored = nil
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastWritten = vr.Values
		f.stored = vr.Values
		json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		json.NewEncoder(w).Encode(map[string]any{"range": "Expenses!A1:D10", "values": f.stored})
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c, err := newWithService(svc, Config{SpreadsheetID: "sheet-123", SheetName: "Expenses"}, log.Discard())
	if err != nil {
		t.Fatalf("newWithService: %v", err)
	}
	c.retryDelay = time.Millisecond
	return c
}

func TestMirrorLedgerAndReadBack(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ledger := []core.Expense{
		{Date: core.NewDate(2025, 1, 2), Amount: decimal.RequireFromString("10"), Category: core.Food, Description: "pizza"},
		{Date: core.NewDate(2025, 1, 3), Amount: decimal.RequireFromString("3.25"), Category: core.Travel, Description: "metro"},
	}
	if err := c.MirrorLedger(ctx, ledger); err != nil {
		t.Fatalf("MirrorLedger: %v", err)
	}
	if len(fake.lastWritten) != 3 {
		t.Fatalf("wrote %d rows, want 3", len(fake.lastWritten))
	}

	got, skipped, err := c.ReadLedger(ctx)
	if err != nil {
		t.Fatalf("ReadLedger: %v", err)
	}
	if skipped != 0 || len(got) != 2 {
		t.Fatalf("ReadLedger = %d rows, %d skipped", len(got), skipped)
	}
	if got[1].Description != "metro" || !got[1].Amount.Equal(decimal.RequireFromString("3.25")) {
		t.Errorf("unexpected row %+v", got[1])
	}
	if want := []string{"clear", "update", "get"}; strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
}

func TestMirrorLedgerRetriesServerErrors(t *testing.T) {
	fake := &fakeSheets{failClears: 2}
	c := newTestClient(t, fake)

	if err := c.MirrorLedger(context.Background(), nil); err != nil {
		t.Fatalf("MirrorLedger: %v", err)
	}
	if want := "clear,clear,clear,update"; strings.Join(fake.calls, ",") != want {
		t.Errorf("calls = %v, want %s", fake.calls, want)
	}
}

func TestMirrorLedgerGivesUp(t *testing.T) {
	fake := &fakeSheets{failClears: 10}
	c := newTestClient(t, fake)

	if err := c.MirrorLedger(context.Background(), nil); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if len(fake.calls) != 3 {
		t.Errorf("made %d calls, want 3", len(fake.calls))
	}
}

func TestCredentials(t *testing.T) {
	if _, err := credentials(Config{}); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := credentials(Config{CredentialsFile: "/non/existent.json"}); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := credentials(Config{CredentialsFile: path})
	if err != nil || !strings.Contains(string(got), "service_account") {
		t.Errorf("credentials(file) = %q, %v", got, err)
	}
	got, err = credentials(Config{CredentialsJSON: `{"inline":true}`, CredentialsFile: path})
	if err != nil || string(got) != `{"inline":true}` {
		t.Errorf("inline JSON should win, got %q, %v", got, err)
	}
}

func TestNewWithServiceRequiresSpreadsheetID(t *testing.T) {
	if _, err := newWithService(nil, Config{}, log.Discard()); err == nil {
		t.Error("expected error for missing spreadsheet ID")
	}
	c, err := newWithService(nil, Config{SpreadsheetID: "x"}, log.Discard())
	if err != nil || c.sheetName != "Expenses" {
		t.Errorf("default sheet name = %q, %v", c.sheetName, err)
	}
}
