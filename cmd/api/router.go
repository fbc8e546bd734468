package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/andeen171/onfly-api/internal/auth"
	"github.com/andeen171/onfly-api/internal/config"
	"github.com/andeen171/onfly-api/internal/expense"
	"github.com/andeen171/onfly-api/internal/handlers"
	"github.com/andeen171/onfly-api/internal/middleware"
	"github.com/andeen171/onfly-api/internal/notify"
	"github.com/andeen171/onfly-api/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires repositories, handlers and middleware. Every API route is
// served both at the root and under /api.
func newRouter(db *sql.DB, cfg config.Config, dispatcher *notify.Dispatcher) http.Handler {
	ttl := time.Duration(cfg.JWTExpireHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	userRepo := repo.NewUserRepo(db)
	tokens := auth.NewIssuer([]byte(cfg.JWTSecret), ttl, repo.NewTokenRepo(db))

	authHandler := &handlers.AuthHandler{UserRepo: userRepo, Tokens: tokens, Notifier: dispatcher}
	expenseHandler := handlers.NewExpenseHandler(repo.NewExpenseRepo(db), expense.NewValidator(nil), dispatcher)

	// one bucket per IP across /register and /login, with or without the /api prefix
	authLimiter := middleware.PerMinute(cfg.AuthRatePerMinute, cfg.AuthRateBurst)

	logger := slog.Default()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSEnabled()))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(cfg.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	// ===== Operational =====
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("readiness check failed", "error", err)
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// ===== API =====
	api := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(tokens))

			r.Get("/user", authHandler.Me)
			r.Post("/logout", authHandler.Logout)

			r.Route("/expenses", func(r chi.Router) {
				r.Get("/", expenseHandler.List)
				r.Post("/", expenseHandler.Create)
				r.Get("/{id}", expenseHandler.Get)
				r.Put("/{id}", expenseHandler.Update)
				r.Delete("/{id}", expenseHandler.Delete)
			})
		})
	}
	api(r)
	r.Route("/api", api)

	return r
}
