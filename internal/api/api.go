// Package api exposes the ledger as a JSON API described with huma.
package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/log"
	"cashbook/internal/services"
)

const (
	Title   = "Cashbook API"
	Version = "1.0.0"
	prefix  = "/api/v1"
)

// Ledger is everything the API needs from the service layer.
// *services.LedgerService implements it.
type Ledger interface {
	transactionLister
	transactionGetter
	transactionCreator
	transactionUpdater
	transactionDeleter
	storeResetter
	transactionExporter
}

// New mounts a huma API on mux and registers every operation.
func New(mux *http.ServeMux, ledger Ledger, logger *log.Logger) huma.API {
	cfg := huma.DefaultConfig(Title, Version)
	cfg.Info.Description = "Record income and expense transactions and read their summary."
	api := humago.New(mux, cfg)
	Register(api, ledger, logger)
	return api
}

// Register adds every operation to api.
func Register(api huma.API, ledger Ledger, logger *log.Logger) {
	logger = orDiscard(logger).WithComponent(log.ComponentAPI)

	NewListTransactionsHandler(ledger).Register(api)
	NewGetTransactionHandler(ledger).Register(api)
	NewCreateTransactionHandler(ledger, logger).Register(api)
	NewUpdateTransactionHandler(ledger, logger).Register(api)
	NewDeleteTransactionHandler(ledger, logger).Register(api)
	NewSummaryHandler(ledger).Register(api)
	NewResetStoreHandler(ledger, logger).Register(api)
	NewExportHandler(ledger).Register(api)
}

// toHTTPError maps service errors onto API status codes. msg is used for
// anything that is not a known client error.
func toHTTPError(err error, msg string) error {
	switch {
	case core.IsValidation(err):
		return huma.Error422UnprocessableEntity(validationMessage(err), err)
	case errors.Is(err, core.ErrNotFound):
		return huma.Error404NotFound("transaction not found")
	case errors.Is(err, export.ErrNothingToExport):
		return huma.Error409Conflict("no transactions to export")
	}
	return huma.NewError(http.StatusInternalServerError, msg, err)
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Discard()
	}
	return l
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyTitle):
		return "title is required"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount must be a non-negative number"
	case errors.Is(err, core.ErrInvalidDate):
		return "date must be YYYY-MM-DD"
	case errors.Is(err, core.ErrInvalidType):
		return "type must be Income or Expense"
	}
	return "invalid transaction"
}

var _ Ledger = (*services.LedgerService)(nil)
