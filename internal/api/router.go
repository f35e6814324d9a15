/**
 * @description
 * This file sets up the HTTP router for the economy-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EconomyRoutes creates and returns a new router for the economy service.
func EconomyRoutes(h *EconomyHandlers, jwtSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public leaderboard.
	r.Get("/leaderboard/{window}", h.LeaderboardHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/enrollments", h.EnrollHandler)
		r.Post("/points/award", h.AwardPointsHandler)

		r.Get("/wallet/balance", h.BalanceHandler)
		r.Get("/wallet/transactions", h.TransactionsHandler)
		r.Post("/wallet/purchase", h.PurchaseHandler)
		r.Post("/wallet/cashout", h.CashoutHandler)
	})

	// Internal endpoints for sibling services and operators.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		r.Post("/internal/users", h.ProvisionUserHandler)
		r.Post("/internal/cashouts/{transactionID}/complete", h.CompleteCashoutHandler)
		r.Post("/internal/cashouts/{transactionID}/fail", h.FailCashoutHandler)
		r.Post("/internal/jobs/promotion/run", h.RunPromotionJobHandler)
		r.Post("/internal/jobs/decay/run", h.RunDecayJobHandler)
	})

	return r
}
