package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/services/user/application/handlers"
	appsvcs "github.com/ghuser/marketplace/services/user/application/services"
)

// UserRoutes registers the auth service endpoints on the provided chi router.
func UserRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	authH := handlers.NewAuthHandler(svcs, a.SessionStore, a.Logger)
	meH := handlers.NewMeHandler(svcs, a.SessionStore, a.Logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Use(auth.RequireAuth(a.SessionStore, a.Logger))
		r.Get("/", meH.Get)
		r.Patch("/", meH.Update)
		r.Delete("/", meH.Delete)
	})
}
