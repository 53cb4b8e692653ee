package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Totals is the income/expense/balance triple shown in the summary.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// Add combines two totals component-wise.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Income:  t.Income.Add(o.Income),
		Expense: t.Expense.Add(o.Expense),
		Balance: t.Balance.Add(o.Balance),
	}
}

// ComputeTotals sums income and expense over txs. Balance is Income - Expense.
func ComputeTotals(txs []Transaction) Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case Income:
			income = income.Add(tx.Amount)
		case Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return Totals{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// CategoryBreakdown sums Expense amounts per category, in order of first
// appearance. Categories whose sum is zero are left out.
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryAmount{Name: tx.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	kept := out[:0]
	for _, c := range out {
		if !c.Amount.IsZero() {
			kept = append(kept, c)
		}
	}
	return kept
}

// BreakdownMap is CategoryBreakdown keyed by category.
func BreakdownMap(txs []Transaction) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal)
	for _, c := range CategoryBreakdown(txs) {
		m[c.Name] = c.Amount
	}
	return m
}

// SumBreakdown adds up every slice of a breakdown.
func SumBreakdown(b []CategoryAmount) decimal.Decimal {
	total := decimal.Zero
	for _, c := range b {
		total = total.Add(c.Amount)
	}
	return total
}
