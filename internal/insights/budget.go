package insights

import "github.com/shopspring/decimal"

// BudgetStatus compares total spending with the session budget.
type BudgetStatus struct {
	Budget       decimal.Decimal `json:"budget" yaml:"budget"`
	WithinBudget bool            `json:"within_budget" yaml:"within_budget"`
	// Remaining is budget - total and goes negative once over budget.
	Remaining decimal.Decimal `json:"remaining" yaml:"remaining"`
}

// Compare checks total against budget. Spending exactly the budget is
// still within it.
func Compare(total, budget decimal.Decimal) BudgetStatus {
	return BudgetStatus{
		Budget:       budget,
		WithinBudget: total.LessThanOrEqual(budget),
		Remaining:    budget.Sub(total),
	}
}
