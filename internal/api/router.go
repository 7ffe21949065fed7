package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/tradereads/tradereads-api/internal/api/middleware"
	"github.com/tradereads/tradereads-api/internal/api/shared"
	"github.com/tradereads/tradereads-api/internal/service/auth"
	"github.com/tradereads/tradereads-api/internal/service/ledger"
	"github.com/tradereads/tradereads-api/internal/service/session"
	"github.com/tradereads/tradereads-api/internal/service/trading"
)

// RouterDeps holds everything the router serves.
type RouterDeps struct {
	Logger   *slog.Logger
	Users    auth.UserService
	JWT      auth.JWTService
	Sessions session.Registry
	Books    ledger.BookService
	Trades   trading.Engine
	Stream   *StreamHub
	Limiter  *apiMiddleware.RateLimiter
	// Ping reports storage health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(deps.Logger))
	r.Use(apiMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)

	authHandler := NewAuthHandler(deps.Users, deps.JWT, deps.Sessions)
	bookHandler := NewBookHandler(deps.Books)
	tradeHandler := NewTradeHandler(deps.Trades)
	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.JWT)

	limit := func(h http.Handler) http.Handler { return h }
	if deps.Limiter != nil {
		limit = deps.Limiter.Limit
	}

	health := healthHandler(deps.Ping)
	r.Get("/health", health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health)

		r.Route("/auth", func(r chi.Router) {
			r.With(limit).Post("/register", authHandler.Register)
			r.With(limit).Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Post("/logout", authHandler.Logout)
				r.Post("/logout-all", authHandler.LogoutAll)
				r.Get("/sessions", authHandler.Sessions)
			})
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Get("/available", bookHandler.AvailableBooks)

			r.Route("/my-books", func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Get("/", bookHandler.MyBooks)
				r.Post("/", bookHandler.CreateMyBook)
				r.Put("/{id}", bookHandler.UpdateMyBook)
				r.Delete("/{id}", bookHandler.DeleteMyBook)
			})

			r.Get("/{id}", bookHandler.GetBook)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/", tradeHandler.Create)
			r.Get("/outgoing", tradeHandler.Outgoing)
			r.Get("/incoming", tradeHandler.Incoming)
			r.Get("/counts", tradeHandler.Counts)
			r.Get("/book/{bookId}", tradeHandler.ForBook)
			if deps.Stream != nil {
				r.Get("/stream", deps.Stream.Serve)
			}
			r.Get("/{id}", tradeHandler.Get)
			r.Delete("/{id}", tradeHandler.Delete)
			r.Put("/{id}/accept", tradeHandler.Accept)
			r.Put("/{id}/decline", tradeHandler.Decline)
			r.Put("/{id}/cancel", tradeHandler.Cancel)
			r.Put("/{id}/complete", tradeHandler.Complete)
		})
	})

	return r
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	}
}
