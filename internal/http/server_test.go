package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbook/internal/core"
	"cashbook/internal/kv/memory"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/store"
	"cashbook/internal/taxonomy"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate ...func(*Options)) (*Server, *services.LedgerService) {
	t.Helper()
	st := store.New(memory.New(), store.WithClock(func() time.Time { return testNow }), store.WithLogger(log.Discard()))
	require.NoError(t, st.Load(context.Background()))
	ledger := services.NewLedgerService(st, nil, log.Discard())

	opts := Options{
		Ledger:         ledger,
		Taxonomy:       taxonomy.New([]string{"Food", "Salary", "Transport"}, []string{"Cash", "UPI", "Bank Transfer"}),
		CurrencySymbol: "₹",
		Logger:         log.Discard(),
		Now:            func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := NewServer(":0", opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, ledger
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return do(srv, req)
}

func postForm(srv *Server, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return do(srv, req)
}

func txForm(title, amount, category, date, typ string) url.Values {
	return url.Values{
		"title":         {title},
		"amount":        {amount},
		"category":      {category},
		"date":          {date},
		"description":   {""},
		"paymentMethod": {"Cash"},
		"type":          {typ},
	}
}

func seed(t *testing.T, ledger *services.LedgerService) (salary, coffee core.Transaction) {
	t.Helper()
	ctx := context.Background()
	var err error
	salary, err = ledger.Create(ctx, core.Fields{
		Title: "Salary", Amount: mustAmount(t, "5000"), Category: "Salary",
		Date: core.NewDate(2024, 1, 1), PaymentMethod: "Bank Transfer", Type: core.Income,
	})
	require.NoError(t, err)
	coffee, err = ledger.Create(ctx, core.Fields{
		Title: "Coffee", Amount: mustAmount(t, "150"), Category: "Food",
		Date: core.NewDate(2024, 1, 2), Description: "flat white", PaymentMethod: "Cash", Type: core.Expense,
	})
	require.NoError(t, err)
	return salary, coffee
}

func mustAmount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := core.ParseAmount(s)
	require.NoError(t, err)
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/", false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Add Transaction")
	assert.Contains(t, body, "No transactions found")
	assert.Contains(t, body, "No expense data available")
	assert.Contains(t, body, `value="2024-03-15"`, "date defaults to today")
	assert.Contains(t, body, "₹0.00")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/static/app.css"} {
		assert.Equal(t, http.StatusOK, get(srv, path, false).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, get(srv, "/nope", false).Code)
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.Ready = func(context.Context) error { return errors.New("database is locked") }
	})
	rr := get(srv, "/readyz", false)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "database is locked")
}

func TestSubmitAddAndUpdate(t *testing.T) {
	srv, ledger := newTestServer(t)

	rr := postForm(srv, "/transactions", txForm("Coffee", "150", "Food", "2024-01-02", "Expense"), true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	trig := rr.Header().Get("HX-Trigger")
	assert.Contains(t, trig, EventStoreChanged)
	assert.Contains(t, trig, MsgAdded)
	assert.Contains(t, rr.Body.String(), "Add Transaction", "form comes back empty")

	items, _ := ledger.Snapshot()
	require.Len(t, items, 1)
	id := items[0].ID

	rr = get(srv, "/transactions/"+itoa(id)+"/edit", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Update Transaction")
	assert.Contains(t, rr.Body.String(), `value="Coffee"`)

	form := txForm("Tea", "40", "Food", "2024-01-03", "Expense")
	form.Set("id", itoa(id))
	rr = postForm(srv, "/transactions", form, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), MsgUpdated)
	assert.Contains(t, rr.Body.String(), "Add Transaction", "edit session ends after submit")

	tx, ok := ledger.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Tea", tx.Title)
	assert.Equal(t, 1, len(ledger.View(core.Filter{}).Items))
}

func TestSubmitWithoutHTMXRedirects(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := postForm(srv, "/transactions", txForm("Coffee", "150", "Food", "2024-01-02", "Expense"), false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?notice=added", rr.Header().Get("Location"))

	rr = get(srv, "/?notice=added", false)
	assert.Contains(t, rr.Body.String(), MsgAdded)
}

func TestSubmitValidation(t *testing.T) {
	srv, ledger := newTestServer(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"empty title", txForm("", "10", "Food", "2024-01-02", "Expense"), "Title is required"},
		{"negative amount", txForm("x", "-1", "Food", "2024-01-02", "Expense"), "Amount must be a non-negative number"},
		{"missing date", txForm("x", "1", "Food", "", "Expense"), "Date is required"},
		{"bad type", txForm("x", "1", "Food", "2024-01-02", "Gift"), "Type must be Income or Expense"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postForm(srv, "/transactions", tt.form, true)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"error"`)
		})
	}
	assert.Zero(t, ledger.View(core.Filter{}).Count)

	rr := postForm(srv, "/transactions", txForm("", "10", "Food", "2024-01-02", "Expense"), false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "<!DOCTYPE html>")
}

func TestSubmitUnknownEditSession(t *testing.T) {
	srv, ledger := newTestServer(t)
	form := txForm("Tea", "40", "Food", "2024-01-03", "Expense")
	form.Set("id", "999")
	rr := postForm(srv, "/transactions", form, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Zero(t, ledger.View(core.Filter{}).Count)

	form.Set("id", "abc")
	assert.Equal(t, http.StatusBadRequest, postForm(srv, "/transactions", form, true).Code)
}

func TestDelete(t *testing.T) {
	srv, ledger := newTestServer(t)
	salary, coffee := seed(t, ledger)

	req := httptest.NewRequest(http.MethodDelete, "/transactions/"+itoa(coffee.ID), nil)
	req.Header.Set("HX-Request", "true")
	rr := do(srv, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), MsgDeleted)

	rr = do(srv, httptest.NewRequest(http.MethodDelete, "/transactions/"+itoa(coffee.ID), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = postForm(srv, "/transactions/"+itoa(salary.ID)+"/delete", url.Values{}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?notice=deleted", rr.Header().Get("Location"))
	assert.Zero(t, ledger.View(core.Filter{}).Count)
}

func TestListFiltersAndOrder(t *testing.T) {
	srv, ledger := newTestServer(t)
	seed(t, ledger)

	body := get(srv, "/ui/transactions", true).Body.String()
	require.Contains(t, body, "Coffee")
	assert.Less(t, strings.Index(body, "Coffee"), strings.Index(body, "Salary"), "newest first")
	assert.Contains(t, body, "+₹5000.00")
	assert.Contains(t, body, "-₹150.00")
	assert.Contains(t, body, "Jan 2, 2024")

	body = get(srv, "/ui/transactions?q=FLAT", true).Body.String()
	assert.Contains(t, body, "Coffee")
	assert.NotContains(t, body, "Bank Transfer")

	// The search text is not trimmed: "flat " is in "flat white", "white " is not.
	body = get(srv, "/ui/transactions?q=flat+", true).Body.String()
	assert.Contains(t, body, "Coffee")
	body = get(srv, "/ui/transactions?q=white+", true).Body.String()
	assert.Contains(t, body, "No transactions found")

	body = get(srv, "/ui/transactions?type=Income&category=Food", true).Body.String()
	assert.Contains(t, body, "No transactions found")
}

func TestSummaryPartial(t *testing.T) {
	srv, ledger := newTestServer(t)
	seed(t, ledger)

	body := get(srv, "/ui/summary", true).Body.String()
	assert.Contains(t, body, "₹5000.00")
	assert.Contains(t, body, "₹150.00")
	assert.Contains(t, body, "₹4850.00")
}

func TestCharts(t *testing.T) {
	srv, ledger := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, get(srv, "/charts/pie.png", false).Code)
	assert.Equal(t, http.StatusOK, get(srv, "/charts/bar.png", false).Code)

	seed(t, ledger)
	rr := get(srv, "/charts/pie.png", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	etag := rr.Header().Get("ETag")
	req := httptest.NewRequest(http.MethodGet, "/charts/pie.png", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, do(srv, req).Code)

	rr = get(srv, "/charts/bar.svg", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, get(srv, "/charts/line.png", false).Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/charts/pie.gif", false).Code)

	panel := get(srv, "/ui/charts", true).Body.String()
	assert.Contains(t, panel, "/charts/pie.svg?rev=")
	assert.Contains(t, panel, "Food: ₹150.00")
}

func TestExport(t *testing.T) {
	srv, ledger := newTestServer(t)

	rr := get(srv, "/export/transactions.csv", false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/?notice=empty-export", rr.Header().Get("Location"))

	rr = get(srv, "/export/transactions.json", true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), MsgNothingExport)

	seed(t, ledger)
	rr = get(srv, "/export/transactions.csv", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="transactions.csv"`, rr.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Title,Amount,Category,Date,Description,Payment Method,Type\n"))

	rr = get(srv, "/export/transactions.json", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"paymentMethod": "Bank Transfer"`)

	assert.Equal(t, http.StatusNotFound, get(srv, "/export/transactions.xml", false).Code)
	assert.Equal(t, http.StatusNotFound, get(srv, "/export/other.csv", false).Code)
}

func TestExportFromPage(t *testing.T) {
	srv, ledger := newTestServer(t)

	// The page links must work both through htmx and as plain links; a
	// download attribute would save the no-JS redirect as a file.
	page := get(srv, "/", false).Body.String()
	for _, file := range []string{"transactions.csv", "transactions.json"} {
		assert.Contains(t, page, `href="/export/`+file+`" hx-get="/export/`+file+`" hx-swap="none"`)
	}
	assert.NotContains(t, page, " download")

	// Empty collection: warning notification and no redirect to a file.
	rr := get(srv, "/export/transactions.csv", true)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), MsgNothingExport)
	assert.Empty(t, rr.Header().Get("HX-Redirect"))
	assert.Empty(t, rr.Body.String())

	// Without JS the redirect lands on the page showing the same notice.
	assert.Contains(t, get(srv, "/?notice=empty-export", false).Body.String(), MsgNothingExport)

	seed(t, ledger)
	tests := []struct {
		path string
		msg  string
	}{
		{"/export/transactions.csv", MsgExportedCSV},
		{"/export/transactions.json", MsgExportedJSON},
	}
	for _, tt := range tests {
		rr := get(srv, tt.path, true)
		require.Equal(t, http.StatusOK, rr.Code, tt.path)
		assert.Contains(t, rr.Header().Get("HX-Trigger"), tt.msg)
		assert.Equal(t, tt.path, rr.Header().Get("HX-Redirect"))
		assert.Empty(t, rr.Header().Get("Content-Disposition"))
	}
}

func TestRateLimitOnlyMutations(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	form := txForm("Coffee", "1", "Food", "2024-01-02", "Expense")
	assert.Equal(t, http.StatusOK, postForm(srv, "/transactions", form, true).Code)
	assert.Equal(t, http.StatusOK, postForm(srv, "/transactions", form, true).Code)
	rr := postForm(srv, "/transactions", form, true)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(srv, "/ui/summary", true).Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
