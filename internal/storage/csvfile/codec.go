// Package csvfile stores the expense ledger in a flat CSV file with a
// Date,Amount,Category,Description header.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"smartspend/internal/core"
)

// Header is the first row of every ledger file and export.
var Header = []string{"Date", "Amount", "Category", "Description"}

var ErrColumnCount = errors.New("wrong number of columns")

// RejectedRow is a row that could not be turned into a valid expense.
type RejectedRow struct {
	Line   int
	Record []string
	Err    error
}

// Encode writes the header and one row per expense, in ledger order.
func Encode(w io.Writer, ledger []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range ledger {
		if err := cw.Write(record(e)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(e core.Expense) []string {
	return []string{e.Date.String(), e.Amount.String(), e.Category.String(), e.Description}
}

// Decode reads a ledger. Rows that fail to parse or validate are returned
// separately instead of aborting the read. A leading header row is
// skipped; only a broken CSV stream is reported as an error.
func Decode(r io.Reader) ([]core.Expense, []RejectedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var (
		ledger   []core.Expense
		rejected []RejectedRow
	)
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		if first && isHeader(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		e, err := parseRecord(rec)
		if err != nil {
			rejected = append(rejected, RejectedRow{Line: line, Record: rec, Err: err})
			continue
		}
		ledger = append(ledger, e)
	}
	return ledger, rejected, nil
}

func isHeader(rec []string) bool {
	if len(rec) != len(Header) {
		return false
	}
	for i, h := range Header {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), h) {
			return false
		}
	}
	return true
}

func parseRecord(rec []string) (core.Expense, error) {
	if len(rec) != len(Header) {
		return core.Expense{}, fmt.Errorf("%w: got %d, want %d", ErrColumnCount, len(rec), len(Header))
	}
	date, err := core.ParseDate(rec[0])
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseStoredAmount(rec[1])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, rec[1])
	}
	cat, err := core.ParseCategory(rec[2])
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, rec[2])
	}
	e := core.Expense{Date: date, Amount: amount, Category: cat, Description: rec[3]}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}
