package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/insights"
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ExpenseInput is an expense as typed by the user. An empty Category is
// filled in by the keyword classifier.
type ExpenseInput struct {
	Date        string
	Amount      string
	Category    string
	Description string
}

// Parse converts the raw input into a validated expense.
func (in ExpenseInput) Parse() (core.Expense, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	desc, err := parseDescription(in.Description)
	if err != nil {
		return core.Expense{}, err
	}
	cat, err := parseCategory(in.Category, desc)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{Date: date, Amount: amount, Category: cat, Description: desc}, nil
}

// ExpenseEdit replaces the non-nil fields of a stored expense. Fields left
// nil keep their stored value unchecked.
type ExpenseEdit struct {
	Date        *string
	Amount      *string
	Category    *string
	Description *string
}

// Apply returns cur with the edited fields parsed and replaced.
func (ed ExpenseEdit) Apply(cur core.Expense) (core.Expense, error) {
	e := cur
	var err error
	if ed.Date != nil {
		if e.Date, err = parseDate(*ed.Date); err != nil {
			return core.Expense{}, err
		}
	}
	if ed.Amount != nil {
		if e.Amount, err = parseAmount(*ed.Amount); err != nil {
			return core.Expense{}, err
		}
	}
	if ed.Description != nil {
		if e.Description, err = parseDescription(*ed.Description); err != nil {
			return core.Expense{}, err
		}
	}
	if ed.Category != nil {
		if e.Category, err = parseCategory(*ed.Category, e.Description); err != nil {
			return core.Expense{}, err
		}
	}
	return e, nil
}

func parseDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &ValidationError{Field: "date", Err: err}
	}
	return d, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	a, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Err: err}
	}
	return a, nil
}

func parseDescription(s string) (string, error) {
	desc := strings.TrimSpace(s)
	if utf8.RuneCountInString(desc) > core.MaxDescriptionLength {
		return "", &ValidationError{Field: "description", Err: core.ErrDescriptionLimit}
	}
	return desc, nil
}

// parseCategory classifies desc when s is blank.
func parseCategory(s, desc string) (core.Category, error) {
	if strings.TrimSpace(s) == "" {
		return insights.Classify(desc), nil
	}
	cat, err := core.ParseCategory(s)
	if err != nil {
		return "", &ValidationError{Field: "category", Err: err}
	}
	return cat, nil
}

// ParseBudget parses a non-negative budget amount.
func ParseBudget(s string) (decimal.Decimal, error) {
	b, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "budget", Err: err}
	}
	return b, nil
}
