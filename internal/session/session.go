// Package session holds the per-visitor dashboard state: the working budget
// and which ledger row, if any, is being edited.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartspend/internal/cache"
	"smartspend/internal/log"
)

// CookieName identifies the session cookie.
const CookieName = "smartspend_session"

const defaultMaxSessions = 1000

// Context is the state carried between interactions. It is a value type;
// Manager hands out copies so concurrent requests never share it.
type Context struct {
	ID           string
	Budget       decimal.Decimal
	EditingIndex *int
}

// Editing reports the row being edited.
func (c Context) Editing() (int, bool) {
	if c.EditingIndex == nil {
		return 0, false
	}
	return *c.EditingIndex, true
}

// WithEditing returns a copy editing row i.
func (c Context) WithEditing(i int) Context {
	c.EditingIndex = &i
	return c
}

// WithoutEditing returns a copy with no row in edit.
func (c Context) WithoutEditing() Context {
	c.EditingIndex = nil
	return c
}

// AfterDelete adjusts the editing index for removal of row deleted:
// the edited row itself clears editing, earlier rows shift it down.
func (c Context) AfterDelete(deleted int) Context {
	i, ok := c.Editing()
	if !ok {
		return c
	}
	switch {
	case deleted == i:
		return c.WithoutEditing()
	case deleted < i:
		return c.WithEditing(i - 1)
	}
	return c
}

func (c Context) clone() Context {
	if c.EditingIndex != nil {
		i := *c.EditingIndex
		c.EditingIndex = &i
	}
	return c
}

// Manager stores session contexts in an LRU cache with TTL.
type Manager struct {
	store         *cache.LRUCache[Context]
	defaultBudget decimal.Decimal
	ttl           time.Duration
	secure        bool
	logger        *log.Logger
}

func NewManager(defaultBudget decimal.Decimal, ttl time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	m := &Manager{
		defaultBudget: defaultBudget,
		ttl:           ttl,
		logger:        logger.WithComponent(log.ComponentSession),
	}
	m.store = cache.NewLRUCacheWithOptions[Context](cache.Options{
		MaxEntries: defaultMaxSessions,
		TTL:        ttl,
		OnEvict: func(id string, reason cache.EvictReason) {
			m.logger.Debug("Session dropped", log.FieldSessionID, id, "reason", reason.String())
		},
	})
	return m
}

// SetSecureCookies marks issued cookies Secure (HTTPS deployments).
func (m *Manager) SetSecureCookies(secure bool) {
	m.secure = secure
}

// Cleaner exposes the backing cache for background expiry.
func (m *Manager) Cleaner() cache.Cleaner {
	return m.store
}

// New creates and stores a fresh context with the default budget.
func (m *Manager) New() Context {
	c := Context{ID: uuid.NewString(), Budget: m.defaultBudget}
	m.store.Set(c.ID, c)
	m.logger.Debug("Session created", log.FieldSessionID, c.ID)
	return c.clone()
}

func (m *Manager) Get(id string) (Context, bool) {
	c, ok := m.store.Get(id)
	if !ok {
		return Context{}, false
	}
	return c.clone(), true
}

// Save stores c, replacing any previous state for the same ID.
func (m *Manager) Save(c Context) {
	m.store.Set(c.ID, c.clone())
}

func (m *Manager) Delete(id string) {
	m.store.Delete(id)
}

// Size returns the number of live sessions.
func (m *Manager) Size() int {
	return m.store.Size()
}

// FromRequest returns the context named by the request cookie, creating a
// new one (and setting the cookie on w) when it is missing or expired.
func (m *Manager) FromRequest(w http.ResponseWriter, r *http.Request) Context {
	if ck, err := r.Cookie(CookieName); err == nil {
		if c, ok := m.Get(ck.Value); ok {
			return c
		}
	}
	c := m.New()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    c.ID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c
}
