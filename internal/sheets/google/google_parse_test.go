package google

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"

	"smartspend/internal/core"
)

func TestToRows(t *testing.T) {
	ledger := []core.Expense{
		{Date: core.NewDate(2025, 2, 3), Amount: decimal.RequireFromString("12.50"), Category: core.Food, Description: "cafe"},
	}
	rows := toRows(ledger)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if fmt.Sprint(rows[0]) != "[Date Amount Category Description]" {
		t.Errorf("header = %v", rows[0])
	}
	if fmt.Sprint(rows[1]) != "[2025-02-03 12.5 Food cafe]" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestParseRows(t *testing.T) {
	values := [][]interface{}{
		{"Date", "Amount", "Category", "Description"},
		{"2025-02-03", "12.5", "Food", "cafe"},
		{},
		{"2025-02-04", "7", "travel"},
		{"yesterday", "7", "Travel", "bad date"},
		{"2025-02-05", "-1", "Bills", "negative"},
	}

	got, skipped := parseRows(values)
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d rows, want 2", len(got))
	}
	if got[1].Category != core.Travel || got[1].Description != "" {
		t.Errorf("row without description = %+v", got[1])
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("amount = %s", got[0].Amount)
	}
}

func TestA1Range(t *testing.T) {
	tests := []struct {
		sheet, cells, want string
	}{
		{"Expenses", "A:D", "'Expenses'!A:D"},
		{"My Budget", "A1:D3", "'My Budget'!A1:D3"},
		{"Bob's", "A:D", "'Bob''s'!A:D"},
	}
	for _, tt := range tests {
		if got := a1Range(tt.sheet, tt.cells); got != tt.want {
			t.Errorf("a1Range(%q, %q) = %q, want %q", tt.sheet, tt.cells, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"server error", fmt.Errorf("wrap: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), true},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}
