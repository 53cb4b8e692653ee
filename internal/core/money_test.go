package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if assert.NoError(t, err, tc.in) {
				assert.Equal(t, tc.out, got.String(), tc.in)
			}
		} else {
			assert.ErrorIs(t, err, ErrInvalidAmount, tc.in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹5000.00", FormatAmount("₹", decimal.NewFromInt(5000)))
	assert.Equal(t, "₹0.10", FormatAmount("₹", decimal.RequireFromString("0.1")))
	assert.Equal(t, "₹-50.00", FormatAmount("₹", decimal.NewFromInt(-50)))

	in := Transaction{Type: Income, Amount: decimal.NewFromInt(5000)}
	out := Transaction{Type: Expense, Amount: decimal.RequireFromString("150.456")}
	assert.Equal(t, "+₹5000.00", FormatSigned("₹", in))
	assert.Equal(t, "-₹150.46", FormatSigned("₹", out))
}
