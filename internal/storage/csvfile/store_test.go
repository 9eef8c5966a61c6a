package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "expenses.csv"), log.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewCreatesHeaderOnlyFile(t *testing.T) {
	s := newStore(t)

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "Date,Amount,Category,Description\n" {
		t.Errorf("file = %q, want header only", raw)
	}

	ledger, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ledger == nil || len(ledger) != 0 {
		t.Errorf("Load = %v, want empty non-nil ledger", ledger)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if err := s.Save(ctx, sampleLedger()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameLedger(t, got, sampleLedger())
}

func TestStoreMutations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, e := range sampleLedger() {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	repl := core.Expense{Date: core.NewDate(2025, 4, 1), Amount: decimal.NewFromInt(42), Category: core.Bills, Description: "wifi"}
	if err := s.Replace(ctx, 1, repl); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.Delete(ctx, 0); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []core.Expense{repl, sampleLedger()[2]}
	assertSameLedger(t, got, want)
}

func TestStoreDeleteThenReload(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ledger := sampleLedger()
	if err := s.Save(ctx, ledger); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	reopened, err := New(s.Path(), log.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameLedger(t, got, []core.Expense{ledger[0], ledger[2]})
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	bad := core.Expense{Date: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(-1), Category: core.Food}
	if err := s.Append(ctx, bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("Append error = %v, want ErrInvalidAmount", err)
	}
	if err := s.Delete(ctx, 0); !errors.Is(err, storage.ErrIndexOutOfRange) {
		t.Errorf("Delete error = %v, want ErrIndexOutOfRange", err)
	}
	good := sampleLedger()[0]
	if err := s.Replace(ctx, 3, good); !errors.Is(err, storage.ErrIndexOutOfRange) {
		t.Errorf("Replace error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestStoreQuarantinesMalformedRows(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	content := "Date,Amount,Category,Description\n" +
		"2025-03-01,10,Food,first\n" +
		"not-a-date,10,Food,broken\n" +
		"2025-03-02,20,Travel,second\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Description != "first" || got[1].Description != "second" {
		t.Fatalf("Load = %+v", got)
	}

	rejected, err := os.ReadFile(s.RejectedPath())
	if err != nil {
		t.Fatalf("read rejected: %v", err)
	}
	if want := "Date,Amount,Category,Description\nnot-a-date,10,Food,broken\n"; string(rejected) != want {
		t.Errorf("rejected file = %q, want %q", rejected, want)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	if strings.Contains(string(raw), "broken") {
		t.Errorf("ledger file still holds the malformed row: %q", raw)
	}
}

func TestStoreKeepsLongDescriptionsAndFineAmounts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	long := strings.TrimSpace(strings.Repeat("किराना ", 30))
	content := "Date,Amount,Category,Description\n" +
		"2025-03-01,10,Food,lunch\n" +
		"2025-03-02,33.333,Shopping," + long + "\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[1].Description != long || got[1].Amount.String() != "33.333" {
		t.Fatalf("Load = %+v, want both rows unchanged", got)
	}
	if _, err := os.Stat(s.RejectedPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("nothing should be quarantined, stat err = %v", err)
	}

	if err := s.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	assertSameLedger(t, again, got)
}

func TestRejectedPath(t *testing.T) {
	s := &Store{path: filepath.Join("dir", "expenses.csv")}
	if got, want := s.RejectedPath(), filepath.Join("dir", "expenses.rejected.csv"); got != want {
		t.Errorf("RejectedPath = %q, want %q", got, want)
	}
}
