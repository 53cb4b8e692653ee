package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/chart"
	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/log"
)

var errUnknownChart = errors.New("unknown chart")

// handleChartImage serves /charts/{pie,bar}.{png,svg}. Images are cached
// per store revision, so a hit is never stale.
func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	kind, ext, _ := strings.Cut(r.PathValue("name"), ".")
	format, err := chart.ParseFormat(ext)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	items, rev := s.ledger.Snapshot()
	etag := fmt.Sprintf(`"%s"`, cache.RevisionKey(kind, string(format), rev))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	img, err := s.chartCache.GetOrCompute(cache.RevisionKey(kind, string(format), rev), func() ([]byte, error) {
		var buf bytes.Buffer
		var err error
		switch kind {
		case "pie":
			err = s.renderer.Pie(&buf, core.CategoryBreakdown(items), format)
		case "bar":
			err = s.renderer.Bar(&buf, core.ComputeTotals(items), format)
		default:
			err = errUnknownChart
		}
		return buf.Bytes(), err
	})
	switch {
	case errors.Is(err, errUnknownChart):
		http.NotFound(w, r)
		return
	case errors.Is(err, chart.ErrNoData):
		http.Error(w, "No expense data available", http.StatusNotFound)
		return
	case err != nil:
		log.FromContext(r.Context()).LogError(r.Context(), "Chart rendering failed", err, log.OpRender,
			log.NewFields().WithRevision(rev))
		http.Error(w, "chart rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(img)
}

// handleExport serves /export/transactions.{csv,json}. An empty collection
// gets a warning instead of a file. An htmx request only gets the
// notification and an HX-Redirect to the download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	base, ext, _ := strings.Cut(r.PathValue("file"), ".")
	if base != "transactions" {
		http.NotFound(w, r)
		return
	}
	doc, err := s.ledger.Export(export.Format(ext))
	switch {
	case errors.Is(err, export.ErrUnknownFormat):
		http.NotFound(w, r)
		return
	case errors.Is(err, export.ErrNothingToExport):
		if isHTMX(r) {
			NewHTMXResponse().TriggerWarningNotification(MsgNothingExport).Write(w)
			return
		}
		http.Redirect(w, r, "/?notice=empty-export", http.StatusSeeOther)
		return
	case err != nil:
		log.FromContext(r.Context()).LogError(r.Context(), "Export failed", err, log.OpExport, nil)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	// htmx asks first; the browser then fetches the file itself so the
	// page stays put and shows the notification.
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerSuccessNotification(exportedMessage(export.Format(ext))).
			Header("HX-Redirect", r.URL.Path).
			Write(w)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(doc.Body)
}

func exportedMessage(f export.Format) string {
	if f == export.FormatJSON {
		return MsgExportedJSON
	}
	return MsgExportedCSV
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	})
}

// handleReady checks the persistence backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]interface{}{
		"templates":    "ok",
		"transactions": map[string]interface{}{"revision": s.ledger.Revision()},
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}
	checks["cache"] = map[string]interface{}{"chart_entries": s.chartCache.Size()}
	checks["rate_limiter"] = map[string]interface{}{"active_clients": s.rateLimiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, rate limit and cache metrics in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.traceMiddleware.GetMetrics()
	hits, misses := s.chartCache.Stats()
	items, rev := s.ledger.Snapshot()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "# Cashbook metrics\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", s.now().Sub(s.started).Seconds())
	fmt.Fprintf(w, "transactions_total %d\n", len(items))
	fmt.Fprintf(w, "store_revision %d\n", rev)
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(w, "http_response_time_avg_us %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n", s.rateLimiter.Rejected())
	fmt.Fprintf(w, "rate_limit_active_clients %d\n", s.rateLimiter.ActiveClients())
	fmt.Fprintf(w, "chart_cache_entries %d\n", s.chartCache.Size())
	fmt.Fprintf(w, "chart_cache_hits_total %d\n", hits)
	fmt.Fprintf(w, "chart_cache_misses_total %d\n", misses)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
