package services

import (
	"fmt"

	"smartspend/internal/core"
	"smartspend/internal/insights"
)

// DescribeHighlight renders one insight as a sentence for the web page and
// the CLI.
func DescribeHighlight(h insights.Highlight, f *core.MoneyFormatter) string {
	switch h.Kind {
	case insights.HighlightTopCategory:
		return fmt.Sprintf("You spend the most on %s (%s).", h.Category, f.Format(h.Amount))
	case insights.HighlightAverage:
		return fmt.Sprintf("Your average expense is %s.", f.Format(h.Amount))
	case insights.HighlightUnusual:
		return fmt.Sprintf("Unusual expense detected: %s is more than twice your average.", f.Format(h.Amount))
	case insights.HighlightOverBudget:
		return fmt.Sprintf("You are %s over budget.", f.Format(h.Amount))
	default:
		return string(h.Kind)
	}
}

// DescribeHighlights renders every highlight of r in order.
func DescribeHighlights(r insights.Report, f *core.MoneyFormatter) []string {
	hs := r.Highlights()
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, DescribeHighlight(h, f))
	}
	return out
}

// DescribeRunway renders the runway estimate.
func DescribeRunway(r insights.Runway) string {
	switch r.Kind {
	case insights.RunwayDays:
		if r.Days == 1 {
			return "At your current rate your budget lasts about 1 more day."
		}
		return fmt.Sprintf("At your current rate your budget lasts about %d more days.", r.Days)
	case insights.RunwayExceeded:
		return "Your spending already exceeds the budget."
	default:
		return "No runway estimate: your average expense is zero."
	}
}
