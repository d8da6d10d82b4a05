package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/pkg/correlation"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
	userdomain "github.com/ghuser/marketplace/services/user/domain"
	"github.com/ghuser/marketplace/services/user/domain/models"
	"github.com/ghuser/marketplace/services/user/domain/repositories"
)

// EventProducer publishes user events.
type EventProducer interface {
	PublishUserRegistered(ctx context.Context, u *models.User, correlationID string) (events.Result, error)
	PublishUserUpdated(ctx context.Context, userID string, changes map[string]any, correlationID string) (events.Result, error)
	PublishUserDeleted(ctx context.Context, userID, correlationID string) (events.Result, error)
}

// UserService orchestrates account registration, authentication and profile
// changes. Its events are non-critical: a degraded publish is logged and the
// operation still succeeds.
type UserService struct {
	repo     repositories.UserRepository
	producer EventProducer
	log      logger.Logger
}

// NewUserService returns a UserService wired with the given repository and producer.
func NewUserService(repo repositories.UserRepository, producer EventProducer, log logger.Logger) *UserService {
	return &UserService{repo: repo, producer: producer, log: log}
}

// Register creates an account and publishes UserRegistered.
// Returns ErrEmailTaken if the email is already registered.
func (s *UserService) Register(ctx context.Context, email, name, password string, role models.Role) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user, err := models.NewUser(email, name, role, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", userdomain.ErrInvalidUser, err)
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	res, err := s.producer.PublishUserRegistered(ctx, user, correlation.FromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("publish user registered: %w", err)
	}
	s.observe(ctx, res, user.ID)
	return user, nil
}

// Authenticate returns the user owning email when password matches.
// Unknown emails and wrong passwords both yield auth.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, userdomain.ErrUserNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Update applies patch and publishes UserUpdated with the changed fields.
// Nothing is written or published when no field changes.
func (s *UserService) Update(ctx context.Context, id string, patch models.Patch) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	changes := user.Apply(patch)
	if len(changes) == 0 {
		return user, nil
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	res, err := s.producer.PublishUserUpdated(ctx, user.ID, changes, correlation.FromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("publish user updated: %w", err)
	}
	s.observe(ctx, res, user.ID)
	return user, nil
}

// Delete removes the account and publishes UserDeleted.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	res, err := s.producer.PublishUserDeleted(ctx, id, correlation.FromContext(ctx))
	if err != nil {
		return fmt.Errorf("publish user deleted: %w", err)
	}
	s.observe(ctx, res, id)
	return nil
}

func (s *UserService) observe(ctx context.Context, res events.Result, userID string) {
	if res.Degraded() {
		s.log.InfoContext(ctx, "user operation completed without event",
			"user_id", userID, "topic", res.Topic, "error", res.Err)
	}
}
