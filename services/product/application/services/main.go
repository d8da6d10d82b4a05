package services

import (
	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/pkg/cache"
	"github.com/ghuser/marketplace/services/product/infrastructure/messaging"
	"github.com/ghuser/marketplace/services/product/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Product *ProductService
}

// New wires all product application services with infrastructure from the Application container.
// The Redis read model is used when a.Redis is set.
func New(a *app.Application) *Services {
	repo := postgres.NewProductRepository(a.Db)
	producer := messaging.NewProducer(a.Publisher, messaging.ProducerName)

	var readModel ReadModel
	if a.Redis != nil {
		readModel = cache.NewProductCache(a.Redis)
	}
	return &Services{
		Product: NewProductService(repo, producer, readModel, a.Logger),
	}
}
