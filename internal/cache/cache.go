// Package cache provides in-process caches with idle expiry and a sweeper
// that purges expired entries in the background.
package cache

import (
	"context"
	"sync"
	"time"

	"smartspend/internal/log"
)

// Cleaner is anything holding entries that can expire.
type Cleaner interface {
	CleanExpired() int
}

// Sweeper periodically calls CleanExpired on every registered Cleaner.
type Sweeper struct {
	mu       sync.Mutex
	cleaners map[string]Cleaner
	logger   *log.Logger
}

func NewSweeper(logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Discard()
	}
	return &Sweeper{cleaners: make(map[string]Cleaner), logger: logger}
}

// Register adds c under name; registering a name twice replaces the first.
func (s *Sweeper) Register(name string, c Cleaner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaners[name] = c
}

// Sweep runs one pass and returns the number of entries removed per cache.
func (s *Sweeper) Sweep() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make(map[string]int, len(s.cleaners))
	for name, c := range s.cleaners {
		removed[name] = c.CleanExpired()
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, n := range s.Sweep() {
				if n > 0 {
					s.logger.Debug("Expired cache entries removed", "cache", name, "count", n)
				}
			}
		}
	}
}
