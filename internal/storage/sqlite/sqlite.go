// Package sqlite stores the expense ledger in a local SQLite database.
// Ledger order is the position column, kept contiguous from 0.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

func New(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("SQLite schema ready", log.FieldFile, dbPath, "schema_version", version)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, amount, category, description FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	ledger := []core.Expense{}
	for rows.Next() {
		var date, amount, category, desc string
		if err := rows.Scan(&date, &amount, &category, &desc); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e, err := toExpense(date, amount, category, desc)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", len(ledger), err)
		}
		ledger = append(ledger, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return ledger, nil
}

func toExpense(date, amount, category, desc string) (core.Expense, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, amount)
	}
	c, err := core.ParseCategory(category)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{Date: d, Amount: a, Category: c, Description: desc}, nil
}

func (s *Store) Append(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (position, date, amount, category, description)
		 VALUES ((SELECT COALESCE(MAX(position) + 1, 0) FROM expenses), ?, ?, ?, ?)`,
		e.Date.String(), e.Amount.String(), string(e.Category), e.Description)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	id, _ := res.LastInsertId()
	s.logger.DebugContext(ctx, "Expense saved to SQLite", "id", id, log.FieldAmount, e.Amount.String())
	return nil
}

func (s *Store) Replace(ctx context.Context, index int, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, amount = ?, category = ?, description = ? WHERE position = ?`,
		e.Date.String(), e.Amount.String(), string(e.Category), e.Description, index)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", index, err)
	}
	return checkAffected(res, index)
}

func (s *Store) Delete(ctx context.Context, index int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE position = ?`, index)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", index, err)
	}
	if err := checkAffected(res, index); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE expenses SET position = position - 1 WHERE position > ?`, index); err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, ledger []core.Expense) error {
	if err := storage.ValidateAll(ledger); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (position, date, amount, category, description) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range ledger {
		if _, err := stmt.ExecContext(ctx, i, e.Date.String(), e.Amount.String(), string(e.Category), e.Description); err != nil {
			return fmt.Errorf("insert expense %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// checkAffected turns a no-op UPDATE/DELETE into ErrIndexOutOfRange.
func checkAffected(res sql.Result, index int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", storage.ErrIndexOutOfRange, index)
	}
	return nil
}
