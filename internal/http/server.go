// Package http serves the expense dashboard: full pages for plain browsers,
// HTMX partials for in-page updates and a small JSON/CSV surface.
package http

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"smartspend/internal/cache"
	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/middleware/ratelimit"
	"smartspend/internal/middleware/security"
	"smartspend/internal/middleware/trace"
	"smartspend/internal/services"
	"smartspend/internal/session"
	appweb "smartspend/web"
)

// Options configures a Server.
type Options struct {
	Addr               string
	Dashboard          *services.Dashboard
	Sessions           *session.Manager
	Formatter          *core.MoneyFormatter
	Currency           string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For / X-Real-IP headers
	// are believed when identifying clients.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard *services.Dashboard
	sessions  *session.Manager
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	trace     *trace.Middleware
	formatter *core.MoneyFormatter
	currency  string
	logger    *log.Logger
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(opts Options) (*Server, error) {
	if opts.Dashboard == nil || opts.Sessions == nil {
		return nil, errors.New("http: dashboard and sessions are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Formatter == nil {
		opts.Formatter = core.NewMoneyFormatter(opts.Currency)
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		dashboard: opts.Dashboard,
		sessions:  opts.Sessions,
		formatter: opts.Formatter,
		currency:  opts.Currency,
		logger:    logger,
		detector:  security.NewDetector(opts.Logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}, opts.Logger),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s.trace = trace.NewMiddleware(s.detector.ExtractClientIP, opts.Logger)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.trace.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultPolicy()))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost, http.MethodDelete))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.Cacheable(time.Hour)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get("/", s.handleIndex)
	r.Post("/expenses", s.handleAddExpense)
	r.Get("/expenses/{index}/edit", s.handleBeginEdit)
	r.Post("/expenses/{index}", s.handleUpdateExpense)
	r.Post("/expenses/{index}/delete", s.handleDeleteExpense)
	r.Delete("/expenses/{index}", s.handleDeleteExpense)
	r.Post("/edit/cancel", s.handleCancelEdit)
	r.Post("/budget", s.handleSetBudget)

	r.Get("/ui/suggest", s.handleSuggest)
	r.Get("/api/insights", s.handleInsights)
	r.Get("/export", s.handleExport)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError("GET, POST, DELETE").Write(w)
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		TriggerErrorNotification("Too many requests, slow down").
		Write(w)
}

// RegisterCaches hands the server's expiring state to sw.
func (s *Server) RegisterCaches(sw *cache.Sweeper) {
	sw.Register("rate_limit", s.limiter)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that templates are loaded and the ledger can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.dashboard.Ledger().Load(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type metricsResponse struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
	Sessions  int                       `json:"sessions"`
}

// handleMetrics reports the in-process middleware counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, NewHTMXResponse().JSON(metricsResponse{
		Requests:  s.trace.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
		Sessions:  s.sessions.Size(),
	}))
}
