package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/log"
)

// CategoryAmount is one slice of the expense breakdown.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// SummaryResponseBody carries totals over the whole collection.
type SummaryResponseBody struct {
	Income    string           `json:"income" doc:"Sum of Income amounts"`
	Expense   string           `json:"expense" doc:"Sum of Expense amounts"`
	Balance   string           `json:"balance" doc:"Income minus Expense"`
	Count     int              `json:"count" doc:"Number of transactions"`
	Revision  uint64           `json:"revision"`
	Breakdown []CategoryAmount `json:"breakdown" doc:"Expense per category, in order of first appearance"`
}

type SummaryOutput struct {
	Body SummaryResponseBody
}

// SummaryHandler handles GET /api/v1/summary.
type SummaryHandler struct {
	Ledger transactionLister
}

func NewSummaryHandler(l transactionLister) *SummaryHandler {
	return &SummaryHandler{Ledger: l}
}

func (h *SummaryHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-summary",
		Method:      http.MethodGet,
		Path:        prefix + "/summary",
		Summary:     "Get summary",
		Description: "Returns income, expense and balance totals and the expense breakdown by category.",
		Tags:        []string{"Summary"},
	}, h.handle)
}

func (h *SummaryHandler) handle(_ context.Context, _ *struct{}) (*SummaryOutput, error) {
	view := h.Ledger.View(core.Filter{})
	breakdown := make([]CategoryAmount, len(view.Breakdown))
	for i, c := range view.Breakdown {
		breakdown[i] = CategoryAmount{Category: c.Name, Amount: c.Amount.String()}
	}
	return &SummaryOutput{Body: SummaryResponseBody{
		Income:    view.Totals.Income.String(),
		Expense:   view.Totals.Expense.String(),
		Balance:   view.Totals.Balance.String(),
		Count:     view.Count,
		Revision:  view.Revision,
		Breakdown: breakdown,
	}}, nil
}

// -- reset --

type storeResetter interface {
	Reset(ctx context.Context) error
}

// ResetStoreHandler handles POST /api/v1/store/reset.
type ResetStoreHandler struct {
	Ledger storeResetter
	logger *log.Logger
}

func NewResetStoreHandler(l storeResetter, logger *log.Logger) *ResetStoreHandler {
	return &ResetStoreHandler{Ledger: l, logger: orDiscard(logger)}
}

func (h *ResetStoreHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "reset-store",
		Method:        http.MethodPost,
		Path:          prefix + "/store/reset",
		Summary:       "Reset store",
		Description:   "Removes every transaction. Ids issued later still never repeat an earlier one.",
		Tags:          []string{"Store"},
		DefaultStatus: http.StatusNoContent,
	}, h.handle)
}

func (h *ResetStoreHandler) handle(ctx context.Context, _ *struct{}) (*struct{}, error) {
	if err := h.Ledger.Reset(ctx); err != nil {
		h.logger.LogError(ctx, "api reset failed", err, "reset", nil)
		return nil, toHTTPError(err, "failed to reset store")
	}
	return nil, nil
}

// -- export --

// ExportInput names the export format.
type ExportInput struct {
	Format string `path:"format" enum:"csv,json" doc:"csv or json"`
}

// ExportOutput is a file download.
type ExportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type transactionExporter interface {
	Export(f export.Format) (export.Document, error)
}

// ExportHandler handles GET /api/v1/export/{format}.
type ExportHandler struct {
	Ledger transactionExporter
}

func NewExportHandler(l transactionExporter) *ExportHandler {
	return &ExportHandler{Ledger: l}
}

func (h *ExportHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "export-transactions",
		Method:      http.MethodGet,
		Path:        prefix + "/export/{format}",
		Summary:     "Export transactions",
		Description: "Downloads the whole collection as CSV or JSON. Fails with 409 when it is empty.",
		Tags:        []string{"Export"},
	}, h.handle)
}

func (h *ExportHandler) handle(_ context.Context, input *ExportInput) (*ExportOutput, error) {
	doc, err := h.Ledger.Export(export.Format(input.Format))
	if err != nil {
		return nil, toHTTPError(err, "failed to export transactions")
	}
	return &ExportOutput{
		ContentType:        doc.ContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", doc.Filename),
		Body:               doc.Body,
	}, nil
}
