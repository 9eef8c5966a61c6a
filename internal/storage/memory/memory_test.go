package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/storage"
)

func exp(desc string, amount int64) core.Expense {
	return core.Expense{
		Date:        core.NewDate(2025, 1, 1),
		Amount:      decimal.NewFromInt(amount),
		Category:    core.Food,
		Description: desc,
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(exp("seed", 1))

	if err := s.Append(ctx, exp("b", 2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, exp("c", 3)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Replace(ctx, 1, exp("B", 20)); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.Delete(ctx, 0); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Description != "B" || got[1].Description != "c" {
		t.Fatalf("unexpected ledger %+v", got)
	}

	got[0].Description = "mutated"
	again, _ := s.Load(ctx)
	if again[0].Description != "B" {
		t.Error("Load must return a copy")
	}
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Delete(ctx, 0); !errors.Is(err, storage.ErrIndexOutOfRange) {
		t.Errorf("Delete error = %v", err)
	}
	bad := exp("x", 1)
	bad.Category = "Nope"
	if err := s.Append(ctx, bad); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("Append error = %v", err)
	}
	if err := s.Save(ctx, []core.Expense{bad}); !errors.Is(err, core.ErrInvalidCategory) {
		t.Errorf("Save error = %v", err)
	}
}
