package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps the ledger in a single CSV file. Every mutation loads the
// file, applies the change and rewrites it through a temp file + rename.
type Store struct {
	path   string
	logger *log.Logger
}

// New returns a store for path, creating a header-only file (and its parent
// directories) when none exists.
func New(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Store{path: path, logger: logger.WithComponent(log.ComponentStorage)}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the ledger file location.
func (s *Store) Path() string { return s.path }

// RejectedPath is where malformed rows are moved: expenses.csv becomes
// expenses.rejected.csv next to it.
func (s *Store) RejectedPath() string {
	ext := filepath.Ext(s.path)
	return strings.TrimSuffix(s.path, ext) + ".rejected" + ext
}

func (s *Store) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat ledger file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	s.logger.Info("Creating ledger file", log.FieldFile, s.path)
	return s.write(nil)
}

// Load reads the ledger. Malformed rows are moved to RejectedPath and the
// ledger file is rewritten without them.
func (s *Store) Load(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.ensureFile(); err != nil {
			return nil, err
		}
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	ledger, rejected, err := Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode ledger file %s: %w", s.path, err)
	}
	if ledger == nil {
		ledger = []core.Expense{}
	}

	if len(rejected) > 0 {
		if err := s.quarantine(ctx, rejected); err != nil {
			return nil, err
		}
		if err := s.write(ledger); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

func (s *Store) quarantine(ctx context.Context, rows []RejectedRow) error {
	path := s.RejectedPath()
	_, statErr := os.Stat(path)
	needHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open rejected file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write rejected header: %w", err)
		}
	}
	for _, row := range rows {
		s.logger.WarnContext(ctx, "Quarantining malformed ledger row",
			log.FieldFile, s.path,
			log.FieldLine, row.Line,
			log.FieldError, row.Err.Error())
		if err := w.Write(row.Record); err != nil {
			return fmt.Errorf("write rejected row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush rejected file: %w", err)
	}
	return nil
}

// Append adds e at the end of the ledger.
func (s *Store) Append(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	ledger, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.write(append(ledger, e))
}

// Replace overwrites the record at index.
func (s *Store) Replace(ctx context.Context, index int, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	ledger, err := s.Load(ctx)
	if err != nil {
		return err
	}
	ledger, err = storage.ReplaceAt(ledger, index, e)
	if err != nil {
		return err
	}
	return s.write(ledger)
}

// Delete removes the record at index.
func (s *Store) Delete(ctx context.Context, index int) error {
	ledger, err := s.Load(ctx)
	if err != nil {
		return err
	}
	ledger, err = storage.DeleteAt(ledger, index)
	if err != nil {
		return err
	}
	return s.write(ledger)
}

// Save replaces the file contents with ledger.
func (s *Store) Save(ctx context.Context, ledger []core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateAll(ledger); err != nil {
		return err
	}
	return s.write(ledger)
}

func (s *Store) write(ledger []core.Expense) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp ledger file: %w", err)
	}

	if err := Encode(tmp, ledger); err != nil {
		tmp.Close()
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
