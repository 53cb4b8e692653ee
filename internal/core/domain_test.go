package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok {
			assert.NoError(t, err, "case %d", i)
		} else {
			assert.ErrorIs(t, err, ErrInvalidDate, "case %d", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", d.String())
	assert.Equal(t, "Jan 2, 2024", d.Display())

	_, err = ParseDate("02/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"Income": Income, "expense": Expense, " INCOME ": Income} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("Transfer")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestFieldsValidate(t *testing.T) {
	good := Fields{
		Title:  "Coffee",
		Amount: decimal.NewFromInt(0),
		Date:   NewDate(2024, 1, 2),
		Type:   Expense,
	}
	require.NoError(t, good.Validate())

	bads := map[string]func(f *Fields){
		"blank title":     func(f *Fields) { f.Title = "   " },
		"negative amount": func(f *Fields) { f.Amount = decimal.NewFromInt(-1) },
		"zero date":       func(f *Fields) { f.Date = Date{} },
		"unknown type":    func(f *Fields) { f.Type = "Transfer" },
	}
	for name, mutate := range bads {
		f := good
		mutate(&f)
		err := f.Validate()
		assert.Error(t, err, name)
		assert.True(t, IsValidation(err), name)
	}
}

func TestTransactionJSONLayout(t *testing.T) {
	tx := Transaction{
		ID:            1704153600000,
		Title:         "Coffee",
		Amount:        decimal.RequireFromString("150.5"),
		Category:      "Food",
		Date:          NewDate(2024, 1, 2),
		Description:   "",
		PaymentMethod: "Card",
		Type:          Expense,
	}
	b, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1704153600000,"title":"Coffee","amount":150.5,"category":"Food",
		"date":"2024-01-02","description":"","paymentMethod":"Card","type":"Expense"}`, string(b))

	var back Transaction
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, tx.ID, back.ID)
	assert.True(t, tx.Amount.Equal(back.Amount))
	assert.Equal(t, tx.Date.String(), back.Date.String())
	assert.Equal(t, tx.Fields().Title, back.Title)
}

func TestTransactionUnmarshalAcceptsStringAmount(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"amount":"42.10","type":"Income","date":"2024-03-01"}`), &tx))
	assert.Equal(t, "42.1", tx.Amount.String())

	err := json.Unmarshal([]byte(`{"id":1,"amount":null}`), &tx)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEditSession(t *testing.T) {
	assert.False(t, EditSession{}.IsEdit())
	assert.True(t, EditSession{ID: 7}.IsEdit())
}
