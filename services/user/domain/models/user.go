package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a user's marketplace role.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is the account aggregate of the auth service.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser constructs a User with a generated ID and the current time. The
// email is stored lower-cased.
func NewUser(email, name string, role Role, passwordHash string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	switch {
	case email == "":
		return nil, fmt.Errorf("email is required")
	case name == "":
		return nil, fmt.Errorf("name is required")
	case !role.Valid():
		return nil, fmt.Errorf("unknown role %q", role)
	case passwordHash == "":
		return nil, fmt.Errorf("password hash is required")
	}
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Patch is a partial profile update. Nil fields are left unchanged.
type Patch struct {
	Email *string
	Name  *string
}

// Apply applies p and returns the fields whose value actually changed,
// keyed by their event field name.
func (u *User) Apply(p Patch) map[string]any {
	changes := map[string]any{}
	if p.Email != nil {
		if email := strings.ToLower(strings.TrimSpace(*p.Email)); email != "" && email != u.Email {
			u.Email = email
			changes["email"] = email
		}
	}
	if p.Name != nil {
		if name := strings.TrimSpace(*p.Name); name != "" && name != u.Name {
			u.Name = name
			changes["name"] = name
		}
	}
	if len(changes) > 0 {
		u.UpdatedAt = time.Now().UTC()
	}
	return changes
}
