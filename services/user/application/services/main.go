package services

import (
	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/services/user/infrastructure/messaging"
	"github.com/ghuser/marketplace/services/user/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	User *UserService
}

// New wires all user application services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	repo := postgres.NewUserRepository(a.Db)
	producer := messaging.NewProducer(a.Publisher, messaging.ProducerName)
	return &Services{
		User: NewUserService(repo, producer, a.Logger),
	}
}
