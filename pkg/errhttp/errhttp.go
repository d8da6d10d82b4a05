// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/httpx"
	orderdomain "github.com/ghuser/marketplace/services/order/domain"
	productdomain "github.com/ghuser/marketplace/services/product/domain"
	userdomain "github.com/ghuser/marketplace/services/user/domain"
)

// brokerUnavailable is the client-facing message for failed critical publishes.
const brokerUnavailable = "event broker unavailable"

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors, whose
// message is replaced by the status text.
func WriteError(w http.ResponseWriter, err error) {
	status := mapErrorToStatus(err)
	msg := httpx.ClientMessage(err, status)
	if status == http.StatusServiceUnavailable {
		msg = brokerUnavailable
	}
	httpx.JSONError(w, status, msg)
}

func mapErrorToStatus(err error) int {
	switch {
	// A critical event could not be published; the operation was rolled back.
	case errors.Is(err, events.ErrPublishUnavailable),
		errors.Is(err, events.ErrPublishFailed):
		return http.StatusServiceUnavailable // 503

	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized // 401

	case errors.Is(err, productdomain.ErrNotOwner),
		errors.Is(err, orderdomain.ErrForbidden):
		return http.StatusForbidden // 403

	case errors.Is(err, userdomain.ErrUserNotFound),
		errors.Is(err, productdomain.ErrProductNotFound),
		errors.Is(err, productdomain.ErrVariantNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound):
		return http.StatusNotFound // 404

	case errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, productdomain.ErrInsufficientStock),
		errors.Is(err, orderdomain.ErrInvalidTransition):
		return http.StatusConflict // 409

	case errors.Is(err, userdomain.ErrInvalidUser),
		errors.Is(err, productdomain.ErrInvalidProduct),
		errors.Is(err, orderdomain.ErrInvalidOrder),
		errors.Is(err, orderdomain.ErrProductUnavailable):
		return http.StatusUnprocessableEntity // 422

	default:
		return http.StatusInternalServerError // 500
	}
}
