package services

import (
	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/services/order/infrastructure/messaging"
	"github.com/ghuser/marketplace/services/order/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Order *OrderService
}

// New wires all order application services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	repo := postgres.NewOrderRepository(a.Db)
	products := postgres.NewProductLookup(a.Db)
	producer := messaging.NewProducer(a.Publisher, messaging.ProducerName)
	return &Services{
		Order: NewOrderService(repo, products, producer, a.Logger),
	}
}
