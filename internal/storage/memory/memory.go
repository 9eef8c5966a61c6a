// Package memory is an in-process ledger store for tests and throwaway
// sessions.
package memory

import (
	"context"
	"sync"

	"smartspend/internal/core"
	"smartspend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

// New returns a store seeded with a copy of seed.
func New(seed ...core.Expense) *Store {
	return &Store{items: append([]core.Expense(nil), seed...)}
}

func (s *Store) Load(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense{}, s.items...), nil
}

func (s *Store) Append(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return nil
}

func (s *Store) Replace(_ context.Context, index int, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := storage.ReplaceAt(s.items, index, e)
	if err != nil {
		return err
	}
	s.items = items
	return nil
}

func (s *Store) Delete(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := storage.DeleteAt(s.items, index)
	if err != nil {
		return err
	}
	s.items = items
	return nil
}

func (s *Store) Save(_ context.Context, ledger []core.Expense) error {
	if err := storage.ValidateAll(ledger); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Expense(nil), ledger...)
	return nil
}
