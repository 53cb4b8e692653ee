// Package http serves the server-rendered UI.
//
// This file implements utilities for parsing and validating HTTP request
// data: the transaction form, list filters and path ids.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cashbook/internal/core"
)

var errInvalidID = errors.New("invalid transaction id")

// parseFields reads the transaction form. The result is not validated; the
// ledger does that.
func parseFields(form url.Values) (core.Fields, error) {
	f := core.Fields{
		Title:         sanitizeInput(form.Get("title")),
		Category:      sanitizeInput(form.Get("category")),
		Description:   sanitizeInput(form.Get("description")),
		PaymentMethod: sanitizeInput(form.Get("paymentMethod")),
	}

	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return f, err
	}
	f.Amount = amount

	date, err := core.ParseDate(form.Get("date"))
	if err != nil {
		return f, err
	}
	f.Date = date

	typ, err := core.ParseType(form.Get("type"))
	if err != nil {
		return f, err
	}
	f.Type = typ
	return f, nil
}

// parseEditSession reads the hidden id of the form. Empty or zero means add.
func parseEditSession(form url.Values) (core.EditSession, error) {
	v := strings.TrimSpace(form.Get("id"))
	if v == "" {
		return core.EditSession{}, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return core.EditSession{}, errInvalidID
	}
	return core.EditSession{ID: id}, nil
}

// parseFilter reads the list filters. The search text is kept verbatim,
// spaces included. Unknown type values mean no type filter.
func parseFilter(query url.Values) core.Filter {
	f := core.Filter{
		Query:         query.Get("q"),
		Category:      strings.TrimSpace(query.Get("category")),
		PaymentMethod: strings.TrimSpace(query.Get("payment")),
	}
	if t, err := core.ParseType(query.Get("type")); err == nil {
		f.Type = t
	}
	return f
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// validationMessage turns a validation error into text for the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyTitle):
		return "Title is required"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a non-negative number"
	case errors.Is(err, core.ErrInvalidDate):
		return "Date is required"
	case errors.Is(err, core.ErrInvalidType):
		return "Type must be Income or Expense"
	case errors.Is(err, errInvalidID):
		return MsgInvalidRequest
	}
	return "Invalid transaction"
}

// sanitizeInput removes control characters except tab and line breaks, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// ParseFormOrFail parses the request form and returns an error response on
// failure.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError(MsgInvalidRequest)
	}
	return nil
}
