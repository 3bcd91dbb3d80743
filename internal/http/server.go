// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"ledger/internal/auth"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the server. The zero value is usable.
type Options struct {
	CORSAllowedOrigins []string
	// LoginRequestsPerMinute caps login attempts per client address.
	LoginRequestsPerMinute int
	Logger                 *log.Logger
	Store                  Pinger
}

type Server struct {
	http.Server
	ledger     *services.LedgerService
	statements *services.StatementService
	tokens     *auth.TokenIssuer
	store      Pinger
	logger     *log.Logger
	limiter    *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledgerSvc *services.LedgerService, statements *services.StatementService, tokens *auth.TokenIssuer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:     ledgerSvc,
		statements: statements,
		tokens:     tokens,
		store:      opts.Store,
		logger:     logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.LoginRequestsPerMinute,
		}),
	}
	s.Handler = s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(api chi.Router) {
		api.With(s.limiter.Middleware(security.ClientIP, s.handleRateLimited)).
			Post("/login", s.handleLogin)

		api.Group(func(priv chi.Router) {
			priv.Use(s.authenticate)

			priv.Route("/me", func(me chi.Router) {
				me.Get("/", s.handleMe)
				me.Post("/password", s.handleChangePassword)
				me.Get("/transactions", s.handleMyTransactions)
				me.Get("/statement", s.handleMyStatement)
				me.Get("/statement/{format}", s.handleMyStatementDownload)
			})

			priv.Route("/admin/users", func(adm chi.Router) {
				adm.Use(requireAdmin)

				adm.Get("/", s.handleListUsers)
				adm.Post("/", s.handleCreateUser)
				adm.Route("/{userID}", func(u chi.Router) {
					u.Delete("/", s.handleDeleteUser)
					u.Get("/transactions", s.handleListTransactions)
					u.Post("/transactions", s.handleAddTransaction)
					u.Delete("/transactions/{txID}", s.handleDeleteTransaction)
					u.Get("/statement", s.handleUserStatement)
					u.Get("/statement/{format}", s.handleUserStatementDownload)
				})
			})
		})
	})

	return r
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.logger.Info("Login rate limiter stopped", "requests_rejected", s.limiter.Hits())
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ready"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, security.ClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "too many requests, try again later")
}
