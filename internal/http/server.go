package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/chart"
	"cashbook/internal/log"
	"cashbook/internal/middleware/ratelimit"
	"cashbook/internal/middleware/security"
	"cashbook/internal/middleware/trace"
	"cashbook/internal/services"
	"cashbook/internal/taxonomy"
	appweb "cashbook/web"
)

const (
	chartCacheSize = 64
	chartCacheTTL  = 10 * time.Minute
)

// Options carries the server's collaborators.
type Options struct {
	Ledger         *services.LedgerService
	Taxonomy       taxonomy.Taxonomy
	CurrencySymbol string
	// ChartFormat is what the page embeds; both formats are always served.
	ChartFormat        chart.Format
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready reports whether the persistence backend is reachable. Optional.
	Ready func(context.Context) error
	Now   func() time.Time
}

type Server struct {
	http.Server

	mux       *http.ServeMux
	templates *template.Template
	logger    *log.Logger

	ledger      *services.LedgerService
	taxonomy    taxonomy.Taxonomy
	symbol      string
	chartFormat chart.Format
	renderer    *chart.Renderer
	ready       func(context.Context) error
	now         func() time.Time
	started     time.Time

	chartCache      *cache.LRUCache[[]byte]
	cacheManager    *cache.Manager
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes, templates and middleware. Extra handlers
// (the JSON API) can be mounted on Mux before serving.
func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Ledger == nil {
		return nil, errors.New("http server needs a ledger")
	}
	if opts.Logger == nil {
		opts.Logger = log.Wrap(nil, log.ComponentHTTP)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ChartFormat == "" {
		opts.ChartFormat = chart.SVG
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:          mux,
		templates:    t,
		logger:       logger,
		ledger:       opts.Ledger,
		taxonomy:     opts.Taxonomy,
		symbol:       opts.CurrencySymbol,
		chartFormat:  opts.ChartFormat,
		renderer:     chart.New(opts.CurrencySymbol),
		ready:        opts.Ready,
		now:          opts.Now,
		started:      opts.Now(),
		chartCache:   cache.NewLRUCache[[]byte](chartCacheSize, chartCacheTTL),
		cacheManager: cache.NewManager(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.cacheManager.Register(s.chartCache)
	s.cacheManager.StartCleanup(context.Background(), chartCacheTTL)

	s.routes()

	ips := security.NewClientIPResolver()
	s.traceMiddleware = trace.NewMiddleware(logger, ips.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(ips.ClientIP, s.onRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(headers.Middleware(limit(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		s.mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.mux.HandleFunc("POST /transactions", s.handleSubmit)
	s.mux.HandleFunc("GET /transactions/{id}/edit", s.handleEditForm)
	s.mux.HandleFunc("DELETE /transactions/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /transactions/{id}/delete", s.handleDelete)

	// UI partials
	s.mux.HandleFunc("GET /ui/form", s.handleNewForm)
	s.mux.HandleFunc("GET /ui/transactions", s.handleList)
	s.mux.HandleFunc("GET /ui/summary", s.handleSummary)
	s.mux.HandleFunc("GET /ui/charts", s.handleChartsPanel)

	s.mux.HandleFunc("GET /charts/{name}", s.handleChartImage)
	s.mux.HandleFunc("GET /export/{file}", s.handleExport)
}

// Mux exposes the router so other handlers can share the middleware chain.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// writeTemplate renders name into memory first so a template error never
// leaves a half-written page.
func (s *Server) writeTemplate(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Template execution failed", err, log.OpRender,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", ""))
		InternalServerError("Rendering failed").Write(w)
		return
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(buf.Bytes()).Write(w)
}
