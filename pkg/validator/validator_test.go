package validator_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/logger"
	pkgvalidator "github.com/ghuser/marketplace/pkg/validator"
)

type sampleStruct struct {
	UserID string `validate:"required,uuid"`
	Name   string `validate:"required,min=1,max=10"`
	Email  string `validate:"omitempty,email"`
}

func nopLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

func fieldMap(errs []pkgvalidator.FieldError) map[string]string {
	m := make(map[string]string, len(errs))
	for _, e := range errs {
		m[e.Field] = e.Message
	}
	return m
}

func TestValidate_valid(t *testing.T) {
	s := sampleStruct{
		UserID: "550e8400-e29b-41d4-a716-446655440000",
		Name:   "hello",
	}
	if err := pkgvalidator.Validate(&s); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestFieldErrors_required(t *testing.T) {
	err := pkgvalidator.Validate(&sampleStruct{})
	m := fieldMap(pkgvalidator.FieldErrors(err))
	if m["UserID"] != "This field is required" {
		t.Errorf("unexpected UserID message: %q", m["UserID"])
	}
	if m["Name"] != "This field is required" {
		t.Errorf("unexpected Name message: %q", m["Name"])
	}
}

func TestFieldErrors_max(t *testing.T) {
	s := sampleStruct{UserID: "550e8400-e29b-41d4-a716-446655440000", Name: "12345678901"}
	m := fieldMap(pkgvalidator.FieldErrors(pkgvalidator.Validate(&s)))
	if m["Name"] != "Maximum length is 10" {
		t.Errorf("unexpected Name message: %q", m["Name"])
	}
}

type line struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type nested struct {
	Items []line `json:"items" validate:"required,min=1,dive"`
}

func TestFieldErrors_nestedPath(t *testing.T) {
	err := pkgvalidator.Validate(&nested{Items: []line{{Quantity: 1}, {Quantity: 0}}})
	errs := pkgvalidator.FieldErrors(err)
	if len(errs) != 1 {
		t.Fatalf("expected 1 field error, got %+v", errs)
	}
	if errs[0].Field != "items[1].quantity" {
		t.Errorf("field path: got %q, want %q", errs[0].Field, "items[1].quantity")
	}
}

func TestFieldErrors_nonValidationError(t *testing.T) {
	if errs := pkgvalidator.FieldErrors(http.ErrNoCookie); errs != nil {
		t.Errorf("expected nil for non-validation error, got %v", errs)
	}
}

// --- ValidateRequest ---

type registerReq struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"  validate:"required,min=1,max=255"`
}

func (r *registerReq) Sanitize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
}

func TestValidateRequest_valid(t *testing.T) {
	body := `{"email":"  A@B.com ","name":" widget "}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()

	req, ok := pkgvalidator.ValidateRequest[registerReq](w, r, nopLogger())
	if !ok {
		t.Fatalf("expected ok=true, got false. Response: %s", w.Body.String())
	}
	if req.Email != "a@b.com" {
		t.Errorf("expected sanitized email, got %q", req.Email)
	}
	if req.Name != "widget" {
		t.Errorf("expected sanitized name, got %q", req.Name)
	}
}

func TestValidateRequest_invalidJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{bad json"))
	w := httptest.NewRecorder()

	_, ok := pkgvalidator.ValidateRequest[registerReq](w, r, nopLogger())
	if ok {
		t.Fatal("expected ok=false for malformed JSON")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid JSON") {
		t.Errorf("expected 'Invalid JSON' in body, got: %s", w.Body.String())
	}
}

func TestValidateRequest_fieldErrors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","name":""}`))
	w := httptest.NewRecorder()

	_, ok := pkgvalidator.ValidateRequest[registerReq](w, r, nopLogger())
	if ok {
		t.Fatal("expected ok=false")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp pkgvalidator.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Validation failed" {
		t.Errorf("error: got %q", resp.Error)
	}
	m := fieldMap(resp.Errors)
	if m["email"] != "Must be a valid email address" {
		t.Errorf("email message: got %q", m["email"])
	}
	if m["name"] != "This field is required" {
		t.Errorf("name message: got %q", m["name"])
	}
}
