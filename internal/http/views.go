package http

import (
	"net/url"
	"time"

	"cashbook/internal/chart"
	"cashbook/internal/core"
	"cashbook/internal/services"
	"cashbook/internal/taxonomy"
)

// Template data. Amounts arrive preformatted; templates never do arithmetic.
type (
	pageView struct {
		Form    formView
		Filters filterView
		Summary summaryView
		List    listView
		Charts  chartsView
		Notice  string
	}

	formView struct {
		ID             int64
		Title          string
		Amount         string
		Category       string
		Date           string
		Description    string
		PaymentMethod  string
		Type           string
		Categories     []string
		PaymentMethods []string
		Types          []core.Type
		Error          string
	}

	filterView struct {
		Query          string
		Category       string
		Type           string
		Payment        string
		Categories     []string
		PaymentMethods []string
		Types          []core.Type
	}

	summaryView struct {
		Income  string
		Expense string
		Balance string
		Count   int
	}

	rowView struct {
		ID            int64
		Title         string
		Description   string
		Category      string
		PaymentMethod string
		Type          string
		Date          string
		Amount        string
		Income        bool
	}

	listView struct {
		Rows  []rowView
		Total int
	}

	legendRow struct {
		Name   string
		Amount string
		Color  string
	}

	chartsView struct {
		Revision uint64
		Format   string
		HasPie   bool
		Legend   []legendRow
	}
)

var transactionTypes = []core.Type{core.Income, core.Expense}

// Editing switches the submit button to "Update Transaction".
func (f formView) Editing() bool {
	return f.ID != 0
}

func newForm(tax taxonomy.Taxonomy, now time.Time) formView {
	return formView{
		Date:           core.Today(now).String(),
		Type:           string(core.Expense),
		Categories:     tax.Categories(),
		PaymentMethods: tax.PaymentMethods(),
		Types:          transactionTypes,
	}
}

func editForm(tax taxonomy.Taxonomy, tx core.Transaction) formView {
	return formView{
		ID:             tx.ID,
		Title:          tx.Title,
		Amount:         tx.Amount.String(),
		Category:       tx.Category,
		Date:           tx.Date.String(),
		Description:    tx.Description,
		PaymentMethod:  tx.PaymentMethod,
		Type:           string(tx.Type),
		Categories:     tax.Categories(),
		PaymentMethods: tax.PaymentMethods(),
		Types:          transactionTypes,
	}
}

// formFromValues echoes a rejected submission back with its error.
func formFromValues(tax taxonomy.Taxonomy, session core.EditSession, form url.Values, msg string) formView {
	return formView{
		ID:             session.ID,
		Title:          form.Get("title"),
		Amount:         form.Get("amount"),
		Category:       form.Get("category"),
		Date:           form.Get("date"),
		Description:    form.Get("description"),
		PaymentMethod:  form.Get("paymentMethod"),
		Type:           form.Get("type"),
		Categories:     tax.Categories(),
		PaymentMethods: tax.PaymentMethods(),
		Types:          transactionTypes,
		Error:          msg,
	}
}

func newFilters(tax taxonomy.Taxonomy, f core.Filter) filterView {
	return filterView{
		Query:          f.Query,
		Category:       f.Category,
		Type:           string(f.Type),
		Payment:        f.PaymentMethod,
		Categories:     tax.Categories(),
		PaymentMethods: tax.PaymentMethods(),
		Types:          transactionTypes,
	}
}

func newSummary(symbol string, v services.View) summaryView {
	return summaryView{
		Income:  core.FormatAmount(symbol, v.Totals.Income),
		Expense: core.FormatAmount(symbol, v.Totals.Expense),
		Balance: core.FormatAmount(symbol, v.Totals.Balance),
		Count:   v.Count,
	}
}

func newList(symbol string, v services.View) listView {
	rows := make([]rowView, 0, len(v.Items))
	for _, tx := range v.Items {
		rows = append(rows, rowView{
			ID:            tx.ID,
			Title:         tx.Title,
			Description:   tx.Description,
			Category:      tx.Category,
			PaymentMethod: tx.PaymentMethod,
			Type:          string(tx.Type),
			Date:          tx.Date.Display(),
			Amount:        core.FormatSigned(symbol, tx),
			Income:        tx.Type == core.Income,
		})
	}
	return listView{Rows: rows, Total: v.Count}
}

func newCharts(symbol string, f chart.Format, v services.View) chartsView {
	legend := make([]legendRow, 0, len(v.Breakdown))
	for i, c := range v.Breakdown {
		legend = append(legend, legendRow{
			Name:   c.Name,
			Amount: core.FormatAmount(symbol, c.Amount),
			Color:  "#" + chart.Palette[i%len(chart.Palette)],
		})
	}
	return chartsView{
		Revision: v.Revision,
		Format:   string(f),
		HasPie:   len(v.Breakdown) > 0,
		Legend:   legend,
	}
}

// noticeText maps the ?notice= values used by no-JS redirects.
func noticeText(code string) string {
	switch code {
	case "added":
		return MsgAdded
	case "updated":
		return MsgUpdated
	case "deleted":
		return MsgDeleted
	case "empty-export":
		return MsgNothingExport
	}
	return ""
}
