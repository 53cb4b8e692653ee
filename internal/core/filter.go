package core

import (
	"sort"
	"strings"
)

// Filter narrows the transaction list. Empty fields match everything.
type Filter struct {
	Query         string
	Category      string
	Type          Type
	PaymentMethod string
}

// IsZero reports whether no predicate is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

func (f Filter) match(tx Transaction, q string) bool {
	if q != "" &&
		!strings.Contains(strings.ToLower(tx.Title), q) &&
		!strings.Contains(strings.ToLower(tx.Description), q) {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.PaymentMethod != "" && tx.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// FilterTransactions returns the matching transactions ordered by date,
// newest first. Same-day entries keep their collection order. txs is not
// modified.
func FilterTransactions(txs []Transaction, f Filter) []Transaction {
	q := strings.ToLower(f.Query)
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.match(tx, q) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}
