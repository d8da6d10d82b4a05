package events

import (
	"fmt"
	"time"

	pkgevents "github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/services/user/domain/models"
)

// Topics published by the auth service, one per event type.
const (
	TopicUserRegistered = "user.registered"
	TopicUserUpdated    = "user.updated"
	TopicUserDeleted    = "user.deleted"
)

// Event types of the user domain.
const (
	TypeUserRegistered pkgevents.EventType = "UserRegistered"
	TypeUserUpdated    pkgevents.EventType = "UserUpdated"
	TypeUserDeleted    pkgevents.EventType = "UserDeleted"
)

// AllTopics lists every topic above, for consumers subscribing to the whole domain.
var AllTopics = []string{TopicUserRegistered, TopicUserUpdated, TopicUserDeleted}

// Schemas registers the user payloads with a pkgevents.Catalog.
var Schemas = pkgevents.Schemas{
	TypeUserRegistered: pkgevents.SchemaFor[UserRegistered](),
	TypeUserUpdated:    pkgevents.SchemaFor[UserUpdated](),
	TypeUserDeleted:    pkgevents.SchemaFor[UserDeleted](),
}

// UserRegistered is published after an account is created.
type UserRegistered struct {
	UserID    string    `json:"userId" validate:"required"`
	Email     string    `json:"email" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Role      string    `json:"role" validate:"required"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

func (UserRegistered) EventType() pkgevents.EventType { return TypeUserRegistered }

// UserUpdated carries only the profile fields that changed.
type UserUpdated struct {
	UserID    string         `json:"userId" validate:"required"`
	Changes   map[string]any `json:"changes" validate:"required,min=1"`
	UpdatedAt time.Time      `json:"updatedAt" validate:"required"`
}

func (UserUpdated) EventType() pkgevents.EventType { return TypeUserUpdated }

// UserDeleted is published after an account is removed.
type UserDeleted struct {
	UserID    string    `json:"userId" validate:"required"`
	DeletedAt time.Time `json:"deletedAt" validate:"required"`
}

func (UserDeleted) EventType() pkgevents.EventType { return TypeUserDeleted }

// NewUserRegistered copies createdAt from u.
func NewUserRegistered(u *models.User) (pkgevents.Envelope, error) {
	if u == nil {
		return pkgevents.Envelope{}, fmt.Errorf("%w: nil user", pkgevents.ErrMalformedDomainObject)
	}
	return pkgevents.NewEnvelope(UserRegistered{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	})
}

// NewUserUpdated stamps updatedAt with the current time.
func NewUserUpdated(userID string, changes map[string]any) (pkgevents.Envelope, error) {
	return pkgevents.NewEnvelope(UserUpdated{
		UserID:    userID,
		Changes:   changes,
		UpdatedAt: time.Now().UTC(),
	})
}

// NewUserDeleted stamps deletedAt with the current time.
func NewUserDeleted(userID string) (pkgevents.Envelope, error) {
	return pkgevents.NewEnvelope(UserDeleted{
		UserID:    userID,
		DeletedAt: time.Now().UTC(),
	})
}
