package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/pkg/errhttp"
	"github.com/ghuser/marketplace/pkg/httpx"
	"github.com/ghuser/marketplace/pkg/logger"
	pkgvalidator "github.com/ghuser/marketplace/pkg/validator"
	appsvcs "github.com/ghuser/marketplace/services/user/application/services"
	"github.com/ghuser/marketplace/services/user/domain/models"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	svc   *appsvcs.Services
	store sessions.Store
	log   logger.Logger
}

// NewAuthHandler returns an AuthHandler backed by the given services and session store.
func NewAuthHandler(svc *appsvcs.Services, store sessions.Store, log logger.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, store: store, log: log}
}

// Register creates an account and signs it in.
//
//	@Summary		Register
//	@Description	Creates a buyer or seller account and starts a session
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Account details"
//	@Success		201		{object}	UserResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse
//	@Failure		422		{object}	httpx.ErrorResponse
//	@Failure		503		{object}	httpx.ErrorResponse
//	@Router			/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[RegisterRequest](w, r, h.log)
	if !ok {
		return
	}

	user, err := h.svc.User.Register(r.Context(), req.Email, req.Name, req.Password, models.Role(req.Role))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	if err := auth.SignIn(w, r, h.store, user.ID); err != nil {
		h.log.ErrorContext(r.Context(), "sign in after register failed", "user_id", user.ID, "error", err)
	}
	httpx.Created(w, "/api/users/me", toResponse(user))
}

// Login verifies credentials and starts a session.
//
//	@Summary	Log in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		LoginRequest	true	"Credentials"
//	@Success	200		{object}	UserResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Router		/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[LoginRequest](w, r, h.log)
	if !ok {
		return
	}

	user, err := h.svc.User.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	if err := auth.SignIn(w, r, h.store, user.ID); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

// Logout ends the session.
//
//	@Summary	Log out
//	@Tags		auth
//	@Success	204
//	@Router		/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(w, r, h.store); err != nil {
		h.log.WarnContext(r.Context(), "sign out failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
