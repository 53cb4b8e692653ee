package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Type = "Income"
	Expense Type = "Expense"
)

// DateLayout is the wire and form layout of a transaction date.
const DateLayout = "2006-01-02"

type (
	// Type tells whether a transaction adds to or subtracts from the balance.
	Type string

	Date struct {
		time.Time
	}

	// Fields is everything a transaction carries except its id.
	Fields struct {
		Title         string
		Amount        decimal.Decimal
		Category      string
		Date          Date
		Description   string
		PaymentMethod string
		Type          Type
	}

	Transaction struct {
		ID            int64
		Title         string
		Amount        decimal.Decimal
		Category      string
		Date          Date
		Description   string
		PaymentMethod string
		Type          Type
	}

	// EditSession carries the id being edited by a submit. Zero means add.
	EditSession struct {
		ID int64
	}
)

// Valid reports whether t is one of the two known types.
func (t Type) Valid() bool {
	return t == Income || t == Expense
}

// ParseType accepts the canonical names case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return "", ErrInvalidType
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar day in the local zone.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Display renders the date the way the transaction list shows it.
func (d Date) Display() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// Validate applies the checks a native form would: a title, a non-negative
// amount, a date and one of the two types.
func (f Fields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrEmptyTitle
	}
	if f.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := f.Date.Validate(); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// WithID builds the transaction that stores f under id.
func (f Fields) WithID(id int64) Transaction {
	return Transaction{
		ID:            id,
		Title:         f.Title,
		Amount:        f.Amount,
		Category:      f.Category,
		Date:          f.Date,
		Description:   f.Description,
		PaymentMethod: f.PaymentMethod,
		Type:          f.Type,
	}
}

func (t Transaction) Fields() Fields {
	return Fields{
		Title:         t.Title,
		Amount:        t.Amount,
		Category:      t.Category,
		Date:          t.Date,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		Type:          t.Type,
	}
}

// IsEdit reports whether the session targets an existing transaction.
func (s EditSession) IsEdit() bool {
	return s.ID != 0
}

// transactionJSON is the persisted layout. Amount stays a JSON number.
type transactionJSON struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	Date          Date        `json:"date"`
	Description   string      `json:"description"`
	PaymentMethod string      `json:"paymentMethod"`
	Type          Type        `json:"type"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:            t.ID,
		Title:         t.Title,
		Amount:        json.Number(t.Amount.String()),
		Category:      t.Category,
		Date:          t.Date,
		Description:   t.Description,
		PaymentMethod: t.PaymentMethod,
		Type:          t.Type,
	})
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return fmt.Errorf("transaction %d amount %q: %w", raw.ID, raw.Amount, ErrInvalidAmount)
	}
	*t = Transaction{
		ID:            raw.ID,
		Title:         raw.Title,
		Amount:        amount,
		Category:      raw.Category,
		Date:          raw.Date,
		Description:   raw.Description,
		PaymentMethod: raw.PaymentMethod,
		Type:          raw.Type,
	}
	return nil
}
