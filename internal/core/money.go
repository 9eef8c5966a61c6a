// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them for display.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxAmountDecimals is the most fractional digits a typed amount may have.
const MaxAmountDecimals = 2

// ParseAmount parses an amount typed by the user: a non-negative decimal
// with a dot separator and at most MaxAmountDecimals fractional digits.
// Commas are rejected, since "1,000" is a grouped thousand to an English
// reader and a decimal to others.
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("1,000") -> 0, ErrInvalidAmount
//	ParseAmount("1.005") -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseStoredAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.Exponent() < -MaxAmountDecimals {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MaxAmountDecimals)
	}
	return d, nil
}

// ParseStoredAmount parses an amount read back from a store or mirror. It
// applies the same rules as ParseAmount except the decimal-place limit, so
// ledgers written by other tools load unchanged.
func ParseStoredAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		return decimal.Zero, fmt.Errorf("%w: use '.' as the decimal separator", ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// MoneyFormatter renders amounts with digit grouping and a currency symbol.
type MoneyFormatter struct {
	symbol  string
	printer *message.Printer
}

// NewMoneyFormatter returns a formatter using English digit grouping.
func NewMoneyFormatter(symbol string) *MoneyFormatter {
	return &MoneyFormatter{
		symbol:  symbol,
		printer: message.NewPrinter(language.English),
	}
}

// Format returns e.g. "₹1,234.50" or "-₹20.00".
func (f *MoneyFormatter) Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	v, _ := d.Round(2).Float64()
	return sign + f.symbol + f.printer.Sprintf("%.2f", v)
}

// FormatFloat formats a float amount (used for regression output).
func (f *MoneyFormatter) FormatFloat(v float64) string {
	return f.Format(decimal.NewFromFloat(v))
}
