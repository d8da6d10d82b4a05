package repositories

import (
	"context"

	"github.com/ghuser/marketplace/services/user/domain/models"
)

// UserRepository is the persistence interface for the User aggregate.
// The domain layer owns this interface; infrastructure implements it.
type UserRepository interface {
	// Save inserts a new user. Returns ErrEmailTaken on a duplicate email.
	Save(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Update persists profile fields and UpdatedAt.
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}
