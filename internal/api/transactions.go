package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/services"
)

// TransactionIDInput selects one transaction by path id.
type TransactionIDInput struct {
	ID int64 `path:"id" minimum:"1" doc:"Transaction id"`
}

// TransactionOutput returns a single transaction.
type TransactionOutput struct {
	Body Transaction
}

// -- list --

// ListTransactionsInput carries the filter predicates. Empty values match
// everything.
type ListTransactionsInput struct {
	Query         string `query:"q" doc:"Case-insensitive substring of title or description"`
	Category      string `query:"category" doc:"Exact category"`
	Type          string `query:"type" doc:"Income or Expense"`
	PaymentMethod string `query:"payment" doc:"Exact payment method"`
}

// ListTransactionsResponseBody is the response body for listing transactions.
type ListTransactionsResponseBody struct {
	Transactions []Transaction `json:"transactions" doc:"Matching transactions, newest date first"`
	Total        int           `json:"total" doc:"Size of the whole collection"`
	Revision     uint64        `json:"revision" doc:"Store revision the list was read at"`
}

// ListTransactionsOutput is the Huma output for listing transactions.
type ListTransactionsOutput struct {
	Body ListTransactionsResponseBody
}

type transactionLister interface {
	View(f core.Filter) services.View
}

// ListTransactionsHandler handles GET /api/v1/transactions.
type ListTransactionsHandler struct {
	Ledger transactionLister
}

func NewListTransactionsHandler(l transactionLister) *ListTransactionsHandler {
	return &ListTransactionsHandler{Ledger: l}
}

func (h *ListTransactionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-transactions",
		Method:      http.MethodGet,
		Path:        prefix + "/transactions",
		Summary:     "List transactions",
		Description: "Returns the transactions matching every given filter.",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

func parseListInput(input *ListTransactionsInput) (core.Filter, error) {
	f := core.Filter{
		Query:         input.Query,
		Category:      input.Category,
		PaymentMethod: input.PaymentMethod,
	}
	if input.Type != "" {
		t, err := core.ParseType(input.Type)
		if err != nil {
			return core.Filter{}, huma.Error400BadRequest("type must be Income or Expense", err)
		}
		f.Type = t
	}
	return f, nil
}

func (h *ListTransactionsHandler) handle(_ context.Context, input *ListTransactionsInput) (*ListTransactionsOutput, error) {
	filter, err := parseListInput(input)
	if err != nil {
		return nil, err
	}
	view := h.Ledger.View(filter)
	return &ListTransactionsOutput{Body: ListTransactionsResponseBody{
		Transactions: fromCoreList(view.Items),
		Total:        view.Count,
		Revision:     view.Revision,
	}}, nil
}

// -- get --

type transactionGetter interface {
	Get(id int64) (core.Transaction, bool)
}

// GetTransactionHandler handles GET /api/v1/transactions/{id}.
type GetTransactionHandler struct {
	Ledger transactionGetter
}

func NewGetTransactionHandler(l transactionGetter) *GetTransactionHandler {
	return &GetTransactionHandler{Ledger: l}
}

func (h *GetTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-transaction",
		Method:      http.MethodGet,
		Path:        prefix + "/transactions/{id}",
		Summary:     "Get transaction",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

func (h *GetTransactionHandler) handle(_ context.Context, input *TransactionIDInput) (*TransactionOutput, error) {
	tx, ok := h.Ledger.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("transaction not found")
	}
	return &TransactionOutput{Body: fromCore(tx)}, nil
}

// -- create --

// CreateTransactionInput is the Huma input for creating a transaction.
type CreateTransactionInput struct {
	Body TransactionBody
}

type transactionCreator interface {
	Create(ctx context.Context, f core.Fields) (core.Transaction, error)
}

// CreateTransactionHandler handles POST /api/v1/transactions.
type CreateTransactionHandler struct {
	Ledger transactionCreator
	logger *log.Logger
}

func NewCreateTransactionHandler(l transactionCreator, logger *log.Logger) *CreateTransactionHandler {
	return &CreateTransactionHandler{Ledger: l, logger: orDiscard(logger)}
}

func (h *CreateTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-transaction",
		Method:        http.MethodPost,
		Path:          prefix + "/transactions",
		Summary:       "Create transaction",
		Description:   "Appends a new transaction with the next id.",
		Tags:          []string{"Transactions"},
		DefaultStatus: http.StatusCreated,
	}, h.handle)
}

func (h *CreateTransactionHandler) handle(ctx context.Context, input *CreateTransactionInput) (*TransactionOutput, error) {
	fields, err := parseTransactionBody(input.Body)
	if err != nil {
		return nil, toHTTPError(err, "invalid transaction")
	}
	tx, err := h.Ledger.Create(ctx, fields)
	if err != nil {
		h.logger.LogError(ctx, "api create failed", err, "create", nil)
		return nil, toHTTPError(err, "failed to create transaction")
	}
	return &TransactionOutput{Body: fromCore(tx)}, nil
}

// -- update --

// UpdateTransactionInput is the Huma input for replacing a transaction.
type UpdateTransactionInput struct {
	ID   int64 `path:"id" minimum:"1" doc:"Transaction id"`
	Body TransactionBody
}

type transactionUpdater interface {
	Update(ctx context.Context, id int64, f core.Fields) (core.Transaction, error)
}

// UpdateTransactionHandler handles PUT /api/v1/transactions/{id}.
type UpdateTransactionHandler struct {
	Ledger transactionUpdater
	logger *log.Logger
}

func NewUpdateTransactionHandler(l transactionUpdater, logger *log.Logger) *UpdateTransactionHandler {
	return &UpdateTransactionHandler{Ledger: l, logger: orDiscard(logger)}
}

func (h *UpdateTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "update-transaction",
		Method:      http.MethodPut,
		Path:        prefix + "/transactions/{id}",
		Summary:     "Update transaction",
		Description: "Replaces every field of an existing transaction. The id and position are kept.",
		Tags:        []string{"Transactions"},
	}, h.handle)
}

func (h *UpdateTransactionHandler) handle(ctx context.Context, input *UpdateTransactionInput) (*TransactionOutput, error) {
	fields, err := parseTransactionBody(input.Body)
	if err != nil {
		return nil, toHTTPError(err, "invalid transaction")
	}
	tx, err := h.Ledger.Update(ctx, input.ID, fields)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			h.logger.LogError(ctx, "api update failed", err, "update", log.NewFields().WithTransaction(fields.WithID(input.ID)))
		}
		return nil, toHTTPError(err, "failed to update transaction")
	}
	return &TransactionOutput{Body: fromCore(tx)}, nil
}

// -- delete --

type transactionDeleter interface {
	Delete(ctx context.Context, id int64) error
}

// DeleteTransactionHandler handles DELETE /api/v1/transactions/{id}.
type DeleteTransactionHandler struct {
	Ledger transactionDeleter
	logger *log.Logger
}

func NewDeleteTransactionHandler(l transactionDeleter, logger *log.Logger) *DeleteTransactionHandler {
	return &DeleteTransactionHandler{Ledger: l, logger: orDiscard(logger)}
}

func (h *DeleteTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "delete-transaction",
		Method:        http.MethodDelete,
		Path:          prefix + "/transactions/{id}",
		Summary:       "Delete transaction",
		Tags:          []string{"Transactions"},
		DefaultStatus: http.StatusNoContent,
	}, h.handle)
}

func (h *DeleteTransactionHandler) handle(ctx context.Context, input *TransactionIDInput) (*struct{}, error) {
	if err := h.Ledger.Delete(ctx, input.ID); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			h.logger.LogError(ctx, "api delete failed", err, "delete", nil)
		}
		return nil, toHTTPError(err, "failed to delete transaction")
	}
	return nil, nil
}
