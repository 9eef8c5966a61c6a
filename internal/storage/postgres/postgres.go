// Package postgres stores the expense ledger in PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

var _ storage.Store = (*Store)(nil)

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// New connects to dsn, pings the server and applies the schema.
func New(ctx context.Context, dsn string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentStorage)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database)

	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, amount::text, category, description FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	ledger := []core.Expense{}
	for rows.Next() {
		var (
			date                    time.Time
			amount, category, descr string
		)
		if err := rows.Scan(&date, &amount, &category, &descr); err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}
		a, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w: %q", len(ledger), core.ErrInvalidAmount, amount)
		}
		c, err := core.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", len(ledger), err)
		}
		ledger = append(ledger, core.Expense{
			Date:        core.NewDate(date.Year(), int(date.Month()), date.Day()),
			Amount:      a,
			Category:    c,
			Description: descr,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}
	return ledger, nil
}

func (s *Store) Append(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO expenses (position, date, amount, category, description)
		VALUES ((SELECT COALESCE(MAX(position) + 1, 0) FROM expenses), $1, $2, $3, $4)`,
		e.Date.Time, e.Amount.String(), string(e.Category), e.Description)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, index int, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE expenses SET date = $1, amount = $2, category = $3, description = $4
		WHERE position = $5`,
		e.Date.Time, e.Amount.String(), string(e.Category), e.Description, index)
	if err != nil {
		return fmt.Errorf("updating expense %d: %w", index, err)
	}
	return checkAffected(tag, index)
}

func (s *Store) Delete(ctx context.Context, index int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM expenses WHERE position = $1`, index)
	if err != nil {
		return fmt.Errorf("deleting expense %d: %w", index, err)
	}
	if err := checkAffected(tag, index); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE expenses SET position = position - 1 WHERE position > $1`, index); err != nil {
		return fmt.Errorf("shifting positions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, ledger []core.Expense) error {
	if err := storage.ValidateAll(ledger); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clearing expenses: %w", err)
	}

	batch := &pgx.Batch{}
	for i, e := range ledger {
		batch.Queue(`
			INSERT INTO expenses (position, date, amount, category, description)
			VALUES ($1, $2, $3, $4, $5)`,
			i, e.Date.Time, e.Amount.String(), string(e.Category), e.Description)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range ledger {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("inserting expense %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}
	s.logger.DebugContext(ctx, "Ledger saved to PostgreSQL", log.FieldLedgerSize, len(ledger))
	return nil
}

func checkAffected(tag pgconn.CommandTag, index int) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", storage.ErrIndexOutOfRange, index)
	}
	return nil
}
