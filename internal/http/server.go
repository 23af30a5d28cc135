package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"kharcha/internal/log"
	"kharcha/internal/middleware/ratelimit"
	"kharcha/internal/middleware/security"
	"kharcha/internal/middleware/trace"
	"kharcha/internal/services"
)

// Services are the use cases the API exposes.
type Services struct {
	Ledger     *services.LedgerService
	Categories *services.CategoryService
	EMIs       *services.EMIService
	Budget     *services.BudgetService
}

// Options tune a Server. The zero value is usable.
type Options struct {
	Logger *log.Logger
	// RateLimitRPM is the per-client request budget for /api; 0 disables it.
	RateLimitRPM int
	// Location resolves "today" for transactions submitted without a date.
	Location *time.Location
	// Ready reports whether the storage backend can serve requests.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc    Services
	loc    *time.Location
	ready  func(ctx context.Context) error
	logger *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time

	shutdownOnce sync.Once
}

func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	s := &Server{
		svc:              svc,
		loc:              loc,
		ready:            opts.Ready,
		logger:           logger,
		securityDetector: security.NewDetector(logger),
		started:          time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)
	if opts.RateLimitRPM > 0 {
		cfg := ratelimit.DefaultConfig()
		cfg.RequestsPerMinute = opts.RateLimitRPM
		s.rateLimiter = ratelimit.NewLimiter(cfg)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(s.traceMiddleware.Middleware)
	r.Use(headers.Middleware)
	r.Use(s.securityDetector.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		if s.rateLimiter != nil {
			r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited))
		}

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/categories", s.handleTransactionCategories)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})

		r.Route("/emis", func(r chi.Router) {
			r.Get("/", s.handleListEMIs)
			r.Post("/", s.handleCreateEMI)
			r.Post("/quote", s.handleQuoteEMI)
			r.Get("/due", s.handleDueEMIs)
			r.Get("/{id}", s.handleGetEMI)
			r.Put("/{id}", s.handleReviseEMI)
			r.Post("/{id}/payments", s.handleRecordPayment)
			r.Get("/{id}/schedule", s.handleEMISchedule)
		})

		r.Get("/budget", s.handleGetBudget)
		r.Put("/budget", s.handleSaveBudget)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
