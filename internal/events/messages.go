package events

import (
	"encoding/json"
	"time"

	"smartspend/internal/core"
)

// Action names the ledger mutation an event describes.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionReplaced Action = "replaced"
)

// ExpensePayload is the wire form of an expense, using the same field
// formats as the CSV ledger.
type ExpensePayload struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// LedgerEvent is published after every successful ledger mutation.
// Index is -1 when the whole ledger was replaced.
type LedgerEvent struct {
	Action    Action          `json:"action"`
	Index     int             `json:"index"`
	Expense   *ExpensePayload `json:"expense,omitempty"`
	Count     int             `json:"count"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewLedgerEvent builds an event. e may be nil (deletes, full replaces).
func NewLedgerEvent(action Action, index int, e *core.Expense, count int) *LedgerEvent {
	ev := &LedgerEvent{
		Action:    action,
		Index:     index,
		Count:     count,
		Timestamp: time.Now(),
	}
	if e != nil {
		ev.Expense = &ExpensePayload{
			Date:        e.Date.String(),
			Amount:      e.Amount.String(),
			Category:    e.Category.String(),
			Description: e.Description,
		}
	}
	return ev
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
