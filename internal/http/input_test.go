package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestReadForm(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        map[string]string
		wantErr     bool
	}{
		{
			name:        "urlencoded",
			contentType: "application/x-www-form-urlencoded",
			body:        "amount=250&description=form+test&category=Food",
			want:        map[string]string{"amount": "250", "description": "form test", "category": "Food"},
		},
		{
			name:        "json with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"amount": 42.5, "description": "chai", "recurring": true}`,
			want:        map[string]string{"amount": "42.5", "description": "chai", "recurring": "true"},
		},
		{
			name: "json sniffed without content type",
			body: `  {"budget": "9000"}`,
			want: map[string]string{"budget": "9000"},
		},
		{
			name:        "control characters dropped",
			contentType: "application/x-www-form-urlencoded",
			body:        "description=%20pizza%00night%20",
			want:        map[string]string{"description": "pizzanight"},
		},
		{
			name: "empty body",
			want: map[string]string{},
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        `{"amount":`,
			wantErr:     true,
		},
		{
			name:        "oversized",
			contentType: "application/x-www-form-urlencoded",
			body:        "description=" + strings.Repeat("x", maxBodyBytes),
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			got, err := readForm(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readForm() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Errorf("readForm() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got.Get(k) != v {
					t.Errorf("Get(%q) = %q, want %q", k, got.Get(k), v)
				}
			}
		})
	}
}

func TestExpenseInput(t *testing.T) {
	f := form{"date": "2025-05-01", "amount": "99.5", "category": "Food", "description": "swiggy"}
	in := expenseInput(f)
	if in.Date != "2025-05-01" || in.Amount != "99.5" || in.Category != "Food" || in.Description != "swiggy" {
		t.Errorf("expenseInput = %+v", in)
	}
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"0", 0, true},
		{"17", 17, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("index", tt.raw)
			req := httptest.NewRequest(http.MethodGet, "/expenses/x/edit", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			got, ok := parseIndex(req)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseIndex(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
