// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals end to end; rounding to two places happens
// only when a value is formatted for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a non-negative decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, the way
// a numeric form input would. Zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders symbol followed by the value with two decimals.
// A negative value keeps its sign after the symbol ("₹-50.00").
func FormatAmount(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixed(2)
}

// FormatSigned prefixes the amount with + for income and - for expense.
func FormatSigned(symbol string, t Transaction) string {
	sign := "-"
	if t.Type == Income {
		sign = "+"
	}
	return sign + FormatAmount(symbol, t.Amount)
}
