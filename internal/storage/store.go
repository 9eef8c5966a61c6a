// Package storage defines the persistence port for the expense ledger and
// the index helpers shared by the backends.
package storage

import (
	"context"
	"errors"
	"fmt"

	"smartspend/internal/core"
)

// Store persists the ordered expense ledger. Indexes are 0-based positions
// in insertion order.
type Store interface {
	Load(ctx context.Context) ([]core.Expense, error)
	Append(ctx context.Context, e core.Expense) error
	Replace(ctx context.Context, index int, e core.Expense) error
	Delete(ctx context.Context, index int) error
	// Save overwrites the whole ledger.
	Save(ctx context.Context, ledger []core.Expense) error
}

var ErrIndexOutOfRange = errors.New("expense index out of range")

// CheckIndex returns ErrIndexOutOfRange, wrapped with the index, unless
// 0 <= index < n.
func CheckIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %d (ledger has %d records)", ErrIndexOutOfRange, index, n)
	}
	return nil
}

// ValidateAll checks every record and reports the first invalid position.
func ValidateAll(ledger []core.Expense) error {
	for i, e := range ledger {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// ReplaceAt returns a copy of ledger with the record at index swapped for e.
func ReplaceAt(ledger []core.Expense, index int, e core.Expense) ([]core.Expense, error) {
	if err := CheckIndex(index, len(ledger)); err != nil {
		return nil, err
	}
	out := append([]core.Expense(nil), ledger...)
	out[index] = e
	return out, nil
}

// DeleteAt returns a copy of ledger without the record at index. The other
// records keep their relative order.
func DeleteAt(ledger []core.Expense, index int) ([]core.Expense, error) {
	if err := CheckIndex(index, len(ledger)); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(ledger)-1)
	out = append(out, ledger[:index]...)
	return append(out, ledger[index+1:]...), nil
}
