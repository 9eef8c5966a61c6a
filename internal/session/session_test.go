package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smartspend/internal/log"
)

func newManager() *Manager {
	return NewManager(decimal.NewFromInt(5000), time.Hour, log.Discard())
}

func TestAfterDelete(t *testing.T) {
	tests := []struct {
		name      string
		editing   *int
		deleted   int
		want      int
		wantClear bool
	}{
		{"not editing", nil, 0, 0, true},
		{"delete edited row", intPtr(2), 2, 0, true},
		{"delete earlier row", intPtr(2), 0, 1, false},
		{"delete later row", intPtr(2), 5, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Context{EditingIndex: tt.editing}.AfterDelete(tt.deleted)
			got, ok := c.Editing()
			if ok == tt.wantClear {
				t.Fatalf("editing = %v, want cleared=%v", ok, tt.wantClear)
			}
			if ok && got != tt.want {
				t.Errorf("editing index = %d, want %d", got, tt.want)
			}
		})
	}
}

func intPtr(i int) *int { return &i }

func TestManagerCopiesState(t *testing.T) {
	m := newManager()
	c := m.New()
	if !c.Budget.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("default budget = %s", c.Budget)
	}

	c = c.WithEditing(3)
	m.Save(c)
	*c.EditingIndex = 99

	got, ok := m.Get(c.ID)
	if !ok {
		t.Fatal("session not found")
	}
	if i, _ := got.Editing(); i != 3 {
		t.Errorf("stored editing index mutated through caller pointer: %d", i)
	}
}

func TestFromRequest(t *testing.T) {
	m := newManager()

	rec := httptest.NewRecorder()
	c := m.FromRequest(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != c.ID {
		t.Fatalf("cookie not set: %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	again := m.FromRequest(rec, req)
	if again.ID != c.ID {
		t.Errorf("got new session %s, want %s", again.ID, c.ID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("existing session should not reissue cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "unknown"})
	if fresh := m.FromRequest(httptest.NewRecorder(), req); fresh.ID == "unknown" {
		t.Error("unknown session id should not be adopted")
	}
	if m.Size() != 2 {
		t.Errorf("Size = %d, want 2", m.Size())
	}
}
