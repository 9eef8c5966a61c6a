// Package insights derives categories, statistics, budget status and a
// month-end projection from an in-memory expense ledger. Every function is
// pure and total over well-formed records.
package insights

import (
	"strings"

	"smartspend/internal/core"
)

type keywordRule struct {
	category core.Category
	keywords []string
}

// Rules are checked in order; the first list with a matching keyword wins.
var keywordRules = []keywordRule{
	{core.Travel, []string{"uber", "ola", "rapido", "metro"}},
	{core.Food, []string{"pizza", "burger", "restaurant", "cafe", "zomato", "swiggy"}},
	{core.Shopping, []string{"amazon", "flipkart", "mall", "shopping"}},
	{core.Bills, []string{"electric", "bill", "recharge", "wifi"}},
}

// Classify suggests a category for a free-text description using
// case-insensitive substring matching. Unmatched or empty text is Other.
func Classify(description string) core.Category {
	if strings.TrimSpace(description) == "" {
		return core.Other
	}
	text := strings.ToLower(description)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return core.Other
}
