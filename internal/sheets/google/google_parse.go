package google

import (
	"fmt"
	"strings"

	"smartspend/internal/core"
)

var headerRow = []interface{}{"Date", "Amount", "Category", "Description"}

// toRows renders the ledger with the same columns and formats as the CSV file.
func toRows(ledger []core.Expense) [][]interface{} {
	rows := make([][]interface{}, 0, len(ledger)+1)
	rows = append(rows, headerRow)
	for _, e := range ledger {
		rows = append(rows, []interface{}{
			e.Date.String(),
			e.Amount.String(),
			e.Category.String(),
			e.Description,
		})
	}
	return rows
}

// parseRows converts a values matrix back into expenses. The header row and
// blank rows are ignored; rows that fail validation are counted as skipped.
func parseRows(values [][]interface{}) ([]core.Expense, int) {
	var (
		out     []core.Expense
		skipped int
	)
	for i, raw := range values {
		row := toStrings(raw)
		if i == 0 && len(row) > 0 && strings.EqualFold(row[0], "Date") {
			continue
		}
		if len(row) == 0 || strings.Join(row, "") == "" {
			continue
		}
		e, err := parseRow(row)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, skipped
}

func parseRow(row []string) (core.Expense, error) {
	if len(row) < 3 {
		return core.Expense{}, fmt.Errorf("row has %d columns", len(row))
	}
	date, err := core.ParseDate(row[0])
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseStoredAmount(row[1])
	if err != nil {
		return core.Expense{}, err
	}
	cat, err := core.ParseCategory(row[2])
	if err != nil {
		return core.Expense{}, err
	}
	// Sheets drops trailing empty cells, so the description may be missing.
	desc := ""
	if len(row) > 3 {
		desc = row[3]
	}
	e := core.Expense{Date: date, Amount: amount, Category: cat, Description: desc}
	return e, e.Validate()
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// a1Range quotes the sheet name for A1 notation.
func a1Range(sheet, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(sheet, "'", "''"), cells)
}
