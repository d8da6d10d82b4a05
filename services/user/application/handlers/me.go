package handlers

import (
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

// MeHandler serves the signed-in user's own profile. Routes using it must
// sit behind auth.RequireAuth.
type MeHandler struct {
	svc   *appsvcs.Services
	store sessions.Store
	log   logger.Logger
}

// NewMeHandler returns a MeHandler backed by the given services and session store.
func NewMeHandler(svc *appsvcs.Services, store sessions.Store, log logger.Logger) *MeHandler {
	return &MeHandler{svc: svc, store: store, log: log}
}

// Get returns the current profile.
//
//	@Summary	Current profile
//	@Tags		users
//	@Produce	json
//	@Success	200	{object}	UserResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Router		/users/me [get]
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.svc.User.Get(r.Context(), userID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

// Update patches the current profile.
//
//	@Summary	Update profile
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		request	body		UpdateProfileRequest	true	"Fields to change"
//	@Success	200		{object}	UserResponse
//	@Failure	400		{object}	httpx.ErrorResponse
//	@Failure	401		{object}	httpx.ErrorResponse
//	@Failure	409		{object}	httpx.ErrorResponse
//	@Failure	422		{object}	httpx.ErrorResponse
//	@Router		/users/me [patch]
func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	req, ok := pkgvalidator.ValidateRequest[UpdateProfileRequest](w, r, h.log)
	if !ok {
		return
	}
	user, err := h.svc.User.Update(r.Context(), userID, models.Patch{Email: req.Email, Name: req.Name})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(user))
}

// Delete removes the current account and ends all of its sessions.
//
//	@Summary	Delete account
//	@Tags		users
//	@Success	204
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Failure	503	{object}	httpx.ErrorResponse
//	@Router		/users/me [delete]
func (h *MeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err := h.svc.User.Delete(r.Context(), userID); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	if err := auth.SignOut(w, r, h.store); err != nil {
		h.log.WarnContext(r.Context(), "sign out after delete failed", "user_id", userID, "error", err)
	}
	if err := auth.RevokeAll(r.Context(), h.store, userID); err != nil {
		h.log.WarnContext(r.Context(), "revoking remaining sessions failed", "user_id", userID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
