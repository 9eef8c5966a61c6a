package csvfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
)

func sampleLedger() []core.Expense {
	return []core.Expense{
		{Date: core.NewDate(2025, 3, 2), Amount: decimal.RequireFromString("100"), Category: core.Food, Description: "Pizza night"},
		{Date: core.NewDate(2025, 3, 1), Amount: decimal.RequireFromString("12.5"), Category: core.Travel, Description: "uber, airport \"express\""},
		{Date: core.NewDate(2025, 3, 5), Amount: decimal.Zero, Category: core.Other, Description: ""},
	}
}

func assertSameLedger(t *testing.T, got, want []core.Expense) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("ledger length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if !g.Date.Equal(w.Date.Time) || !g.Amount.Equal(w.Amount) || g.Category != w.Category || g.Description != w.Description {
			t.Errorf("record %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleLedger()); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Date,Amount,Category,Description\n") {
		t.Errorf("missing header: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "2025-03-01,12.5,Travel,") {
		t.Errorf("unexpected row format: %q", buf.String())
	}

	got, rejected, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejected rows: %+v", rejected)
	}
	assertSameLedger(t, got, sampleLedger())
}

func TestDecodeRejectsMalformedRows(t *testing.T) {
	in := strings.Join([]string{
		"Date,Amount,Category,Description",
		"2025-03-01,100.0,Food,ok",
		"2025-02-30,10,Food,bad date",
		"2025-03-02,abc,Food,bad amount",
		"2025-03-02,-5,Food,negative",
		"2025-03-02,5,Rent,bad category",
		"2025-03-02,5,Food",
		"2025-03-03,7,bills,lowercase category",
	}, "\n") + "\n"

	got, rejected, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("kept %d rows, want 2: %+v", len(got), got)
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(100)) || got[1].Category != core.Bills {
		t.Errorf("unexpected kept rows %+v", got)
	}
	if len(rejected) != 5 {
		t.Fatalf("rejected %d rows, want 5", len(rejected))
	}

	wantLines := []int{3, 4, 5, 6, 7}
	for i, line := range wantLines {
		if rejected[i].Line != line {
			t.Errorf("rejected[%d].Line = %d, want %d", i, rejected[i].Line, line)
		}
	}
	if !errors.Is(rejected[0].Err, core.ErrInvalidDate) {
		t.Errorf("rejected[0].Err = %v, want ErrInvalidDate", rejected[0].Err)
	}
	if !errors.Is(rejected[1].Err, core.ErrInvalidAmount) {
		t.Errorf("rejected[1].Err = %v, want ErrInvalidAmount", rejected[1].Err)
	}
	if !errors.Is(rejected[3].Err, core.ErrInvalidCategory) {
		t.Errorf("rejected[3].Err = %v, want ErrInvalidCategory", rejected[3].Err)
	}
	if !errors.Is(rejected[4].Err, ErrColumnCount) {
		t.Errorf("rejected[4].Err = %v, want ErrColumnCount", rejected[4].Err)
	}
}

func TestDecodeRejectsGroupedAmounts(t *testing.T) {
	in := "Date,Amount,Category,Description\n2025-03-01,\"1,000\",Bills,rent share\n"
	got, rejected, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 0 || len(rejected) != 1 || !errors.Is(rejected[0].Err, core.ErrInvalidAmount) {
		t.Errorf("kept %+v, rejected %+v; want the grouped amount rejected", got, rejected)
	}
}

func TestDecodeWithoutHeader(t *testing.T) {
	got, rejected, err := Decode(strings.NewReader("2025-03-01,1,Food,x\n"))
	if err != nil || len(rejected) != 0 || len(got) != 1 {
		t.Fatalf("Decode = %v, %v, %v", got, rejected, err)
	}
}
