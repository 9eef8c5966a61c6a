package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"smartspend/internal/core"
	"smartspend/internal/insights"
	"smartspend/internal/services"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

// renderTable draws a rounded table. Columns listed in numeric are right
// aligned.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

func ledgerRows(ledger []core.Expense, f *core.MoneyFormatter) [][]string {
	rows := make([][]string, 0, len(ledger))
	for i, e := range ledger {
		rows = append(rows, []string{
			strconv.Itoa(i),
			e.Date.String(),
			f.Format(e.Amount),
			e.Category.String(),
			e.Description,
		})
	}
	return rows
}

func renderLedger(ledger []core.Expense, f *core.MoneyFormatter) string {
	if len(ledger) == 0 {
		return mutedStyle.Render("No expenses yet.") + "\n"
	}
	out := renderTable([]string{"#", "Date", "Amount", "Category", "Description"}, ledgerRows(ledger, f), 2)
	return out + "\n" + titleStyle.Render("Total: "+f.Format(insights.Total(ledger))) + "\n"
}

// renderReport lays out the insights the way the dashboard shows them.
func renderReport(r insights.Report, f *core.MoneyFormatter) string {
	out := titleStyle.Render("Total spent: "+f.Format(r.Total)) + "\n"
	if r.Budget.WithinBudget {
		out += okStyle.Render("Within budget: "+f.Format(r.Budget.Remaining)+" left of "+f.Format(r.Budget.Budget)) + "\n"
	} else {
		out += errorStyle.Render("Budget exceeded by "+f.Format(r.Budget.Remaining.Neg())) + "\n"
	}

	if len(r.Shares) > 0 {
		rows := make([][]string, 0, len(r.Shares))
		for _, sh := range r.Shares {
			rows = append(rows, []string{sh.Category.String(), f.Format(sh.Amount), strconv.FormatFloat(sh.Percent, 'f', 1, 64) + "%"})
		}
		out += "\n" + renderTable([]string{"Category", "Amount", "Share"}, rows, 1, 2) + "\n"
	}

	if hs := services.DescribeHighlights(r, f); len(hs) > 0 {
		out += "\n"
		for _, h := range hs {
			out += "• " + h + "\n"
		}
	}

	if p := r.Projection; p != nil {
		out += "\n"
		if p.HasMonthEnd {
			out += "Projected month-end spending: " + f.FormatFloat(p.MonthEnd) + "\n"
		} else {
			out += mutedStyle.Render("All expenses fall on the same day of the month; no trend yet.") + "\n"
		}
		out += services.DescribeRunway(p.Runway) + "\n"
	} else {
		out += "\n" + mutedStyle.Render("A projection appears once you have more than 10 expenses.") + "\n"
	}
	return out
}
