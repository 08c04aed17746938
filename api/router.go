package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the chi router for the full API surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Everything below requires a session.
		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/auth/logout", s.handleLogout)
			r.Get("/me", s.handleMe)

			r.Route("/market", func(r chi.Router) {
				r.Get("/underlyings", s.handleUnderlyings)
				r.Get("/quote/{symbol}", s.handleQuote)
				r.Get("/chain/{underlying}", s.handleChain)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", s.handleListAccounts)
				r.Post("/", s.handleCreateAccount)
				r.Route("/{accountID}", func(r chi.Router) {
					r.Get("/", s.handleGetAccount)
					r.Post("/orders/execute", s.handleExecuteOrder)
					r.Get("/orders", s.handleListOrders)
					r.Get("/positions", s.handleListPositions)
					r.Post("/positions/{symbol}/close", s.handleClosePosition)
				})
			})

			r.Route("/strategies", func(r chi.Router) {
				r.Get("/", s.handleListStrategies)
				r.Post("/", s.handleCreateStrategy)
				r.Get("/{strategyID}", s.handleGetStrategy)
				r.Put("/{strategyID}", s.handleUpdateStrategy)
				r.Delete("/{strategyID}", s.handleDeleteStrategy)
			})

			r.Route("/backtests", func(r chi.Router) {
				r.Get("/", s.handleListBacktests)
				r.Post("/", s.handleCreateBacktest)
				r.Get("/{runID}", s.handleGetBacktest)
				r.Delete("/{runID}", s.handleDeleteBacktest)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/users", s.handleAdminListUsers)
				r.Post("/users/{userID}/active", s.handleAdminSetActive)
				r.Post("/users/{userID}/promote", s.handleAdminPromote)
				r.Get("/invites", s.handleAdminListInvites)
				r.Post("/invites", s.handleAdminCreateInvite)
				r.Delete("/invites/{code}", s.handleAdminRevokeInvite)
				r.Get("/stats", s.handleAdminStats)
			})
		})
	})

	return r
}
