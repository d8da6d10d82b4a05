package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/services/product/application/handlers"
	appsvcs "github.com/ghuser/marketplace/services/product/application/services"
)

// ProductRoutes registers product endpoints on the provided chi router.
func ProductRoutes(r chi.Router, a *app.Application) {
	h := handlers.NewProductHandler(appsvcs.New(a), a.Logger)
	r.Route("/products", func(r chi.Router) {
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(a.SessionStore, a.Logger))
			r.Post("/", h.Create)
			r.Patch("/{id}", h.Update)
			r.Post("/{id}/variants/{variantID}/deduct", h.DeductStock)
		})
	})
}
