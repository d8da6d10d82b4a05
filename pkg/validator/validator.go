// Package validator is the request validation gate applied before any service
// action runs, and the struct checker used for event payloads.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ghuser/marketplace/pkg/httpx"
	"github.com/ghuser/marketplace/pkg/logger"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]

		// ignore unexported or explicitly ignored
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldError is one rejected field in a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the 400 body written by ValidateRequest.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Errors []FieldError `json:"errors"`
}

// Sanitizer is implemented by request types that normalize their own fields
// (trimming, lower-casing) before validation.
type Sanitizer interface {
	Sanitize()
}

// Validate runs struct-level validation using go-playground/validator tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// FieldErrors converts validator.ValidationErrors into an ordered list of
// {field, message}. Nested fields are reported by path, e.g. "items[0].quantity".
// Any other error yields nil.
func FieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		out = append(out, FieldError{Field: fieldPath(e), Message: formatFieldError(e)})
	}
	return out
}

// fieldPath strips the root struct name from the error namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "min":
		return fmt.Sprintf("Minimum length is %s", e.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", e.Param())
	case "email":
		return "Must be a valid email address"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", e.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", e.Param())
	default:
		return fmt.Sprintf("Validation failed on '%s'", e.Tag())
	}
}

// ValidateRequest decodes the JSON request body into T, sanitizes it, and
// validates it. On failure it writes 400 with the rejected fields, logs the
// rejection (the request's correlation id is attached by the logger), and
// returns (nil, false). Downstream code only ever sees the sanitized value.
func ValidateRequest[T any](w http.ResponseWriter, r *http.Request, log logger.Logger) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WarnContext(r.Context(), "request rejected: invalid JSON",
			"path", r.URL.Path, "error", err)
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid JSON",
			Errors: []FieldError{{Field: "body", Message: "Request body must be valid JSON"}},
		})
		return nil, false
	}
	if s, ok := any(&req).(Sanitizer); ok {
		s.Sanitize()
	}
	if err := Validate(&req); err != nil {
		fields := FieldErrors(err)
		log.WarnContext(r.Context(), "request rejected: validation failed",
			"path", r.URL.Path, "fields", fields)
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Errors: fields,
		})
		return nil, false
	}
	return &req, true
}
