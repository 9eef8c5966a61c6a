// Package backend opens the ledger store selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"smartspend/internal/config"
	"smartspend/internal/log"
	"smartspend/internal/storage"
	"smartspend/internal/storage/csvfile"
	"smartspend/internal/storage/memory"
	"smartspend/internal/storage/postgres"
	"smartspend/internal/storage/sqlite"
)

// Kind names a store implementation.
type Kind string

const (
	CSV      Kind = "csv"
	Memory   Kind = "memory"
	SQLite   Kind = "sqlite"
	Postgres Kind = "postgres"
)

// Config is the slice of the application config a store needs.
type Config struct {
	Kind Kind
	// Target is the csv file, the sqlite path or the postgres DSN.
	Target string
}

// Opened is a live store plus whatever releases it.
type Opened struct {
	Store storage.Store
	close func() error
}

func (o *Opened) Close() error {
	if o == nil || o.close == nil {
		return nil
	}
	return o.close()
}

type opener struct {
	target string // config key that must be set, "" when none
	open   func(ctx context.Context, target string, logger *log.Logger) (*Opened, error)
}

var openers = map[Kind]opener{
	CSV: {"LEDGER_FILE", func(_ context.Context, path string, logger *log.Logger) (*Opened, error) {
		s, err := csvfile.New(path, logger)
		if err != nil {
			return nil, err
		}
		return &Opened{Store: s}, nil
	}},
	Memory: {"", func(context.Context, string, *log.Logger) (*Opened, error) {
		return &Opened{Store: memory.New()}, nil
	}},
	SQLite: {"SQLITE_DB_PATH", func(_ context.Context, path string, logger *log.Logger) (*Opened, error) {
		s, err := sqlite.New(path, logger)
		if err != nil {
			return nil, err
		}
		return &Opened{Store: s, close: s.Close}, nil
	}},
	Postgres: {"POSTGRES_DSN", func(ctx context.Context, dsn string, logger *log.Logger) (*Opened, error) {
		s, err := postgres.New(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		return &Opened{Store: s, close: s.Close}, nil
	}},
}

// Kinds lists the supported backends in name order.
func Kinds() []string {
	out := make([]string, 0, len(openers))
	for k := range openers {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// FromAppConfig picks the target matching cfg.DataBackend.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{Kind: Kind(cfg.DataBackend)}
	switch c.Kind {
	case CSV:
		c.Target = cfg.LedgerFile
	case SQLite:
		c.Target = cfg.SQLiteDBPath
	case Postgres:
		c.Target = cfg.PostgresDSN
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	o, ok := openers[c.Kind]
	if !ok {
		return fmt.Errorf("unknown data backend %q (want one of %s)", c.Kind, strings.Join(Kinds(), ", "))
	}
	if o.target != "" && c.Target == "" {
		return fmt.Errorf("%s is required for the %s backend", o.target, c.Kind)
	}
	return nil
}

// Open validates c and opens its store.
func Open(ctx context.Context, c Config, logger *log.Logger) (*Opened, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentBackend)

	opened, err := openers[c.Kind].open(ctx, c.Target, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", c.Kind, err)
	}
	logger.Info("Ledger store ready", log.FieldBackend, string(c.Kind))
	return opened, nil
}
