package insights

import (
	"github.com/shopspring/decimal"

	"smartspend/internal/core"
)

// Stats holds the gated summary statistics.
type Stats struct {
	Average decimal.Decimal `json:"average" yaml:"average"`
	Max     decimal.Decimal `json:"max" yaml:"max"`
	Unusual bool            `json:"unusual" yaml:"unusual"`
}

// Report is everything the dashboard derives from one ledger and budget.
type Report struct {
	Count       int                               `json:"count" yaml:"count"`
	Total       decimal.Decimal                   `json:"total" yaml:"total"`
	ByCategory  map[core.Category]decimal.Decimal `json:"by_category" yaml:"by_category"`
	Shares      []CategoryShare                   `json:"shares" yaml:"shares"`
	TopCategory core.Category                     `json:"top_category,omitempty" yaml:"top_category,omitempty"`
	Stats       *Stats                            `json:"stats,omitempty" yaml:"stats,omitempty"`
	Budget      BudgetStatus                      `json:"budget" yaml:"budget"`
	Projection  *Projection                       `json:"projection,omitempty" yaml:"projection,omitempty"`
}

// Build runs every insight over the ledger.
func Build(ledger []core.Expense, budget decimal.Decimal) Report {
	total := Total(ledger)
	r := Report{
		Count:      len(ledger),
		Total:      total,
		ByCategory: ByCategory(ledger),
		Shares:     Shares(ledger),
		Budget:     Compare(total, budget),
	}
	if len(r.Shares) > 0 {
		r.TopCategory = r.Shares[0].Category
	}
	if avg, ok := Average(ledger); ok {
		unusual, _ := UnusualExpense(ledger)
		r.Stats = &Stats{Average: avg, Max: MaxAmount(ledger), Unusual: unusual}
	}
	if p, ok := Project(ledger, budget); ok {
		r.Projection = &p
	}
	return r
}

// HighlightKind identifies a textual insight.
type HighlightKind string

const (
	HighlightTopCategory HighlightKind = "top-category"
	HighlightAverage     HighlightKind = "average"
	HighlightUnusual     HighlightKind = "unusual"
	HighlightOverBudget  HighlightKind = "over-budget"
)

// Highlight is one insight line. Category and Amount are set depending on
// the kind; the presentation layer owns the wording.
type Highlight struct {
	Kind     HighlightKind   `json:"kind" yaml:"kind"`
	Category core.Category   `json:"category,omitempty" yaml:"category,omitempty"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
}

// Highlights lists the insights worth calling out, in display order.
func (r Report) Highlights() []Highlight {
	var out []Highlight
	if r.TopCategory != "" {
		out = append(out, Highlight{
			Kind:     HighlightTopCategory,
			Category: r.TopCategory,
			Amount:   r.ByCategory[r.TopCategory],
		})
	}
	if r.Stats != nil {
		out = append(out, Highlight{Kind: HighlightAverage, Amount: r.Stats.Average})
		if r.Stats.Unusual {
			out = append(out, Highlight{Kind: HighlightUnusual, Amount: r.Stats.Max})
		}
	}
	if !r.Budget.WithinBudget {
		out = append(out, Highlight{Kind: HighlightOverBudget, Amount: r.Budget.Remaining.Neg()})
	}
	return out
}
