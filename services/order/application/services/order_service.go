package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghuser/marketplace/pkg/correlation"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
	orderdomain "github.com/ghuser/marketplace/services/order/domain"
	"github.com/ghuser/marketplace/services/order/domain/models"
	"github.com/ghuser/marketplace/services/order/domain/repositories"
)

// EventProducer publishes order events.
type EventProducer interface {
	PublishOrderCreated(ctx context.Context, o *models.Order, correlationID string) (events.Result, error)
	PublishOrderStatusUpdated(ctx context.Context, orderID string, status models.Status, correlationID string) (events.Result, error)
	PublishOrderCancelled(ctx context.Context, o *models.Order, correlationID string) (events.Result, error)
}

// Line is one requested order line.
type Line struct {
	ProductID string
	VariantID string
	Quantity  int
}

// OrderService orchestrates order placement and lifecycle changes.
type OrderService struct {
	repo     repositories.OrderRepository
	products repositories.ProductLookup
	producer EventProducer
	log      logger.Logger
}

// NewOrderService returns an OrderService.
func NewOrderService(repo repositories.OrderRepository, products repositories.ProductLookup, producer EventProducer, log logger.Logger) *OrderService {
	return &OrderService{repo: repo, products: products, producer: producer, log: log}
}

// Create places a pending order for buyerID at current prices and publishes
// the critical OrderCreated event. If the event cannot be delivered the order
// is removed and the broker error is returned.
func (s *OrderService) Create(ctx context.Context, buyerID string, lines []Line) (*models.Order, error) {
	items := make([]models.Item, 0, len(lines))
	for _, l := range lines {
		listing, err := s.products.Listing(ctx, l.ProductID, l.VariantID)
		if err != nil {
			return nil, fmt.Errorf("look up product %s: %w", l.ProductID, err)
		}
		items = append(items, models.Item{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Price:     listing.Price,
			SellerID:  listing.SellerID,
		})
	}
	order, err := models.NewOrder(buyerID, items)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	if _, err := s.producer.PublishOrderCreated(ctx, order, correlation.FromContext(ctx)); err != nil {
		if derr := s.repo.Delete(context.WithoutCancel(ctx), order.ID); derr != nil {
			s.log.ErrorContext(ctx, "order removal after failed publish did not complete",
				"order_id", order.ID, "error", derr)
			return nil, fmt.Errorf("publish order created: %w", errors.Join(err, derr))
		}
		s.log.WarnContext(ctx, "order creation reverted", "order_id", order.ID, "error", err)
		return nil, fmt.Errorf("publish order created: %w", err)
	}
	return order, nil
}

// Get returns an order visible to actorID: its buyer or one of its sellers.
func (s *OrderService) Get(ctx context.Context, actorID, orderID string) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BuyerID != actorID && !order.InvolvesSeller(actorID) {
		return nil, orderdomain.ErrForbidden
	}
	return order, nil
}

// UpdateStatus moves an order along its lifecycle on behalf of one of its
// sellers and publishes OrderStatusUpdated. Cancellation goes through Cancel.
func (s *OrderService) UpdateStatus(ctx context.Context, sellerID, orderID string, status models.Status) (*models.Order, error) {
	if status == models.StatusCancelled {
		return nil, fmt.Errorf("%w: use cancel", orderdomain.ErrInvalidTransition)
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !order.InvolvesSeller(sellerID) {
		return nil, orderdomain.ErrForbidden
	}
	if err := order.TransitionTo(status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	res, err := s.producer.PublishOrderStatusUpdated(ctx, order.ID, order.Status, correlation.FromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("publish order status updated: %w", err)
	}
	if res.Degraded() {
		s.log.InfoContext(ctx, "order status changed without event",
			"order_id", order.ID, "status", order.Status, "error", res.Err)
	}
	return order, nil
}

// Cancel cancels an order on behalf of its buyer and publishes the critical
// OrderCancelled event. If the event cannot be delivered the previous status
// is restored and the broker error is returned.
func (s *OrderService) Cancel(ctx context.Context, buyerID, orderID string) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.BuyerID != buyerID {
		return nil, orderdomain.ErrForbidden
	}
	previous, previousAt := order.Status, order.UpdatedAt
	if err := order.TransitionTo(models.StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if _, err := s.producer.PublishOrderCancelled(ctx, order, correlation.FromContext(ctx)); err != nil {
		if rerr := s.repo.UpdateStatus(context.WithoutCancel(ctx), order.ID, previous, previousAt); rerr != nil {
			s.log.ErrorContext(ctx, "status restore after failed publish did not complete",
				"order_id", order.ID, "status", previous, "error", rerr)
			return nil, fmt.Errorf("publish order cancelled: %w", errors.Join(err, rerr))
		}
		s.log.WarnContext(ctx, "order cancellation reverted", "order_id", order.ID, "status", previous, "error", err)
		return nil, fmt.Errorf("publish order cancelled: %w", err)
	}
	return order, nil
}
