package http

import (
	"html/template"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/log"
	appweb "expensetracker/web"
)

type Server struct {
	http.Server
	templates *template.Template
	ledger    *ledger.Ledger
	limiter   *writeLimiter
	logger    *log.Logger
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, l *ledger.Ledger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		ledger:  l,
		limiter: newWriteLimiter(writesPerMinute),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}
	s.RegisterOnShutdown(s.limiter.close)

	// Parse embedded templates at startup.
	t, err := template.New("").
		Funcs(template.FuncMap{"dollars": core.FormatDollars}).
		ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.limitWrites(s.handleCreateExpense)))
	mux.HandleFunc("/clear", s.withSecurityHeaders(s.limitWrites(s.handleClear)))
	mux.HandleFunc("/totals", s.withSecurityHeaders(s.handleTotals))
	mux.HandleFunc("/export.xlsx", s.withSecurityHeaders(s.handleExport))

	s.Handler = log.Middleware(s.logger, requestID)(mux)
	return s
}

// withSecurityHeaders adds security headers and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)
		ctx := r.Context()

		w.Header().Set("X-Request-ID", r.Header.Get("X-Request-ID"))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		log.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
