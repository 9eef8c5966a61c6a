package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
)

const (
	// MinRecordsForStats is the smallest ledger for which average and the
	// unusual-expense flag are surfaced.
	MinRecordsForStats = 6
	// MinRecordsForProjection is the smallest ledger that gets a trend projection.
	MinRecordsForProjection = 11
)

var two = decimal.NewFromInt(2)

// Total sums every amount in the ledger.
func Total(ledger []core.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range ledger {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// ByCategory sums amounts per category. Categories with no records are
// absent from the result.
func ByCategory(ledger []core.Expense) map[core.Category]decimal.Decimal {
	out := make(map[core.Category]decimal.Decimal)
	for _, e := range ledger {
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// Average returns the mean amount. ok is false for ledgers with five or
// fewer records.
func Average(ledger []core.Expense) (avg decimal.Decimal, ok bool) {
	if len(ledger) < MinRecordsForStats {
		return decimal.Zero, false
	}
	return mean(ledger), true
}

func mean(ledger []core.Expense) decimal.Decimal {
	if len(ledger) == 0 {
		return decimal.Zero
	}
	return Total(ledger).Div(decimal.NewFromInt(int64(len(ledger))))
}

// MaxAmount returns the largest single amount, zero for an empty ledger.
func MaxAmount(ledger []core.Expense) decimal.Decimal {
	max := decimal.Zero
	for i, e := range ledger {
		if i == 0 || e.Amount.GreaterThan(max) {
			max = e.Amount
		}
	}
	return max
}

// UnusualExpense reports whether the largest amount exceeds twice the
// average. ok follows the same gate as Average.
func UnusualExpense(ledger []core.Expense) (flag, ok bool) {
	avg, ok := Average(ledger)
	if !ok {
		return false, false
	}
	return MaxAmount(ledger).GreaterThan(avg.Mul(two)), true
}

// CategoryShare is one slice of the spending pie.
type CategoryShare struct {
	Category core.Category   `json:"category" yaml:"category"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Percent  float64         `json:"percent" yaml:"percent"`
}

// Shares returns per-category sums with their percentage of the total,
// largest first. Ties are broken by category name.
func Shares(ledger []core.Expense) []CategoryShare {
	sums := ByCategory(ledger)
	total := Total(ledger)
	out := make([]CategoryShare, 0, len(sums))
	for cat, amt := range sums {
		pct := 0.0
		if total.IsPositive() {
			pct, _ = amt.Div(total).Mul(decimal.NewFromInt(100)).Float64()
		}
		out = append(out, CategoryShare{Category: cat, Amount: amt, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}
