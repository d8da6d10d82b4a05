package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/services/order/application/handlers"
	appsvcs "github.com/ghuser/marketplace/services/order/application/services"
)

// OrderRoutes registers order endpoints on the provided chi router.
func OrderRoutes(r chi.Router, a *app.Application) {
	h := handlers.NewOrderHandler(appsvcs.New(a), a.Logger)
	r.Route("/orders", func(r chi.Router) {
		r.Use(auth.RequireAuth(a.SessionStore, a.Logger))
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/cancel", h.Cancel)
	})
}
