package api

import (
	"strings"

	"cashbook/internal/core"
)

// Transaction is the API representation of a stored transaction.
// Amount travels as a decimal string so no precision is lost.
type Transaction struct {
	ID            int64  `json:"id" doc:"Transaction id, unique and increasing"`
	Title         string `json:"title" doc:"Short description"`
	Amount        string `json:"amount" doc:"Non-negative decimal amount"`
	Category      string `json:"category" doc:"Category name"`
	Date          string `json:"date" format:"date" doc:"Calendar date, YYYY-MM-DD"`
	Description   string `json:"description" doc:"Free text"`
	PaymentMethod string `json:"paymentMethod" doc:"Payment method name"`
	Type          string `json:"type" enum:"Income,Expense" doc:"Income or Expense"`
}

// TransactionBody is the request body for create and update.
type TransactionBody struct {
	Title         string `json:"title" minLength:"1" maxLength:"200" doc:"Short description"`
	Amount        string `json:"amount" minLength:"1" doc:"Non-negative decimal amount, e.g. 12.50"`
	Category      string `json:"category,omitempty" doc:"Category name"`
	Date          string `json:"date" format:"date" doc:"Calendar date, YYYY-MM-DD"`
	Description   string `json:"description,omitempty" maxLength:"1000" doc:"Free text"`
	PaymentMethod string `json:"paymentMethod,omitempty" doc:"Payment method name"`
	Type          string `json:"type" enum:"Income,Expense" doc:"Income or Expense"`
}

func fromCore(tx core.Transaction) Transaction {
	return Transaction{
		ID:            tx.ID,
		Title:         tx.Title,
		Amount:        tx.Amount.String(),
		Category:      tx.Category,
		Date:          tx.Date.String(),
		Description:   tx.Description,
		PaymentMethod: tx.PaymentMethod,
		Type:          string(tx.Type),
	}
}

func fromCoreList(txs []core.Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		out[i] = fromCore(tx)
	}
	return out
}

// parseTransactionBody converts the body into validated fields. The returned
// error is one of the core validation errors.
func parseTransactionBody(b TransactionBody) (core.Fields, error) {
	amount, err := core.ParseAmount(b.Amount)
	if err != nil {
		return core.Fields{}, err
	}
	date, err := core.ParseDate(b.Date)
	if err != nil {
		return core.Fields{}, err
	}
	typ, err := core.ParseType(b.Type)
	if err != nil {
		return core.Fields{}, err
	}
	f := core.Fields{
		Title:         strings.TrimSpace(b.Title),
		Amount:        amount,
		Category:      strings.TrimSpace(b.Category),
		Date:          date,
		Description:   strings.TrimSpace(b.Description),
		PaymentMethod: strings.TrimSpace(b.PaymentMethod),
		Type:          typ,
	}
	return f, f.Validate()
}
