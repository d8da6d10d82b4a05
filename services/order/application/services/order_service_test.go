package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/correlation"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/events/eventstest"
	"github.com/ghuser/marketplace/pkg/logger"
	orderdomain "github.com/ghuser/marketplace/services/order/domain"
	orderevents "github.com/ghuser/marketplace/services/order/domain/events"
	"github.com/ghuser/marketplace/services/order/domain/models"
	"github.com/ghuser/marketplace/services/order/domain/repositories"
	"github.com/ghuser/marketplace/services/order/infrastructure/messaging"
)

// memoryRepo is an in-memory OrderRepository.
type memoryRepo struct {
	mu     sync.Mutex
	orders map[string]models.Order
	// statusErr fails UpdateStatus once it has been called statusErrAfter times.
	statusErr      error
	statusErrAfter int
	statusCalls    int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[string]models.Order{}}
}

func (r *memoryRepo) Save(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = *o
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, orderdomain.ErrOrderNotFound
	}
	o.Items = append([]models.Item(nil), o.Items...)
	return &o, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, status models.Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusCalls++
	if r.statusErr != nil && r.statusCalls > r.statusErrAfter {
		return r.statusErr
	}
	o, ok := r.orders[id]
	if !ok {
		return orderdomain.ErrOrderNotFound
	}
	o.Status, o.UpdatedAt = status, at
	r.orders[id] = o
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// fixedLookup serves listings from a map keyed by product ID.
type fixedLookup map[string]repositories.ProductListing

func (l fixedLookup) Listing(_ context.Context, productID, _ string) (repositories.ProductListing, error) {
	listing, ok := l[productID]
	if !ok {
		return repositories.ProductListing{}, orderdomain.ErrProductUnavailable
	}
	return listing, nil
}

var listings = fixedLookup{
	"p1": {Price: 4.5, SellerID: "s1"},
	"p2": {Price: 10, SellerID: "s2"},
}

func newService(t *testing.T, pub *events.Publisher) (*OrderService, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	producer := messaging.NewProducer(pub, messaging.ProducerName)
	return NewOrderService(repo, listings, producer, logger.New(&config.Config{LogLevel: "error"})), repo
}

func place(t *testing.T, svc *OrderService) *models.Order {
	t.Helper()
	o, err := svc.Create(context.Background(), "b1", []Line{
		{ProductID: "p1", VariantID: "v1", Quantity: 2},
		{ProductID: "p2", VariantID: "v2", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return o
}

func TestCreate_PricesFromCatalog(t *testing.T) {
	tr := &eventstest.Transport{}
	svc, _ := newService(t, eventstest.NewPublisher(t, tr))
	ctx := correlation.WithID(context.Background(), "corr-checkout")

	o, err := svc.Create(ctx, "b1", []Line{{ProductID: "p1", VariantID: "v1", Quantity: 2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.TotalAmount != 9 || o.Items[0].SellerID != "s1" || o.Status != models.StatusPending {
		t.Errorf("unexpected order: %+v", o)
	}

	sent := tr.Sent()
	if len(sent) != 1 || sent[0].Topic != orderevents.TopicOrderCreated {
		t.Fatalf("unexpected sends: %v", tr.Topics())
	}
	if got := events.HeadersOf(sent[0].Message).CorrelationID; got != "corr-checkout" {
		t.Errorf("correlation id: got %q", got)
	}
}

func TestCreate_UnknownProduct(t *testing.T) {
	tr := &eventstest.Transport{}
	svc, repo := newService(t, eventstest.NewPublisher(t, tr))

	_, err := svc.Create(context.Background(), "b1", []Line{{ProductID: "nope", VariantID: "v", Quantity: 1}})
	if !errors.Is(err, orderdomain.ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}
	if repo.count() != 0 || len(tr.Sent()) != 0 {
		t.Error("nothing should be saved or sent")
	}
}

func TestCreate_RemovedWhenBrokerDown(t *testing.T) {
	tests := []struct {
		name    string
		pub     func(t *testing.T) *events.Publisher
		wantErr error
	}{
		{
			name: "not connected",
			pub: func(t *testing.T) *events.Publisher {
				return eventstest.NewDisconnectedPublisher(t, &eventstest.Transport{})
			},
			wantErr: events.ErrPublishUnavailable,
		},
		{
			name: "transport failure",
			pub: func(t *testing.T) *events.Publisher {
				tr := &eventstest.Transport{}
				tr.Fail(errors.New("broker down"))
				return eventstest.NewPublisher(t, tr)
			},
			wantErr: events.ErrPublishFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newService(t, tt.pub(t))
			_, err := svc.Create(context.Background(), "b1", []Line{{ProductID: "p1", VariantID: "v1", Quantity: 1}})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if repo.count() != 0 {
				t.Errorf("order must be removed, %d remain", repo.count())
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	tr := &eventstest.Transport{}
	svc, repo := newService(t, eventstest.NewPublisher(t, tr))
	o := place(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, "b1", o.ID, models.StatusConfirmed); !errors.Is(err, orderdomain.ErrForbidden) {
		t.Errorf("buyer: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "s1", o.ID, models.StatusShipped); !errors.Is(err, orderdomain.ErrInvalidTransition) {
		t.Errorf("pending -> shipped: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "s1", o.ID, models.StatusCancelled); !errors.Is(err, orderdomain.ErrInvalidTransition) {
		t.Errorf("cancel via status: expected ErrInvalidTransition, got %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, "s2", o.ID, models.StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != models.StatusConfirmed {
		t.Errorf("status: got %s", updated.Status)
	}
	stored, _ := repo.GetByID(ctx, o.ID)
	if stored.Status != models.StatusConfirmed {
		t.Errorf("stored status: got %s", stored.Status)
	}
	topics := tr.Topics()
	if topics[len(topics)-1] != orderevents.TopicOrderStatusUpdated {
		t.Errorf("expected order.status_updated last, got %v", topics)
	}
}

func TestUpdateStatus_SucceedsWhenBrokerFails(t *testing.T) {
	tr := &eventstest.Transport{}
	svc, _ := newService(t, eventstest.NewPublisher(t, tr))
	o := place(t, svc)
	tr.Fail(errors.New("broker down"))

	updated, err := svc.UpdateStatus(context.Background(), "s1", o.ID, models.StatusConfirmed)
	if err != nil || updated.Status != models.StatusConfirmed {
		t.Fatalf("non-critical status update must succeed, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	tr := &eventstest.Transport{}
	svc, repo := newService(t, eventstest.NewPublisher(t, tr))
	o := place(t, svc)
	ctx := context.Background()

	if _, err := svc.Cancel(ctx, "s1", o.ID); !errors.Is(err, orderdomain.ErrForbidden) {
		t.Errorf("seller: expected ErrForbidden, got %v", err)
	}
	cancelled, err := svc.Cancel(ctx, "b1", o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status: got %s", cancelled.Status)
	}
	stored, _ := repo.GetByID(ctx, o.ID)
	if stored.Status != models.StatusCancelled {
		t.Errorf("stored status: got %s", stored.Status)
	}
	if _, err := svc.Cancel(ctx, "b1", o.ID); !errors.Is(err, orderdomain.ErrInvalidTransition) {
		t.Errorf("second cancel: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancel_RestoresStatusWhenBrokerFails(t *testing.T) {
	tr := &eventstest.Transport{}
	svc, repo := newService(t, eventstest.NewPublisher(t, tr))
	o := place(t, svc)
	ctx := context.Background()
	if _, err := svc.UpdateStatus(ctx, "s1", o.ID, models.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	tr.Fail(errors.New("broker down"))

	if _, err := svc.Cancel(ctx, "b1", o.ID); !errors.Is(err, events.ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
	stored, _ := repo.GetByID(ctx, o.ID)
	if stored.Status != models.StatusConfirmed {
		t.Errorf("status must be restored to confirmed, got %s", stored.Status)
	}
}

func TestCancel_RestoreFailureIsReported(t *testing.T) {
	svc, repo := newService(t, eventstest.NewDisconnectedPublisher(t, &eventstest.Transport{}))
	o, err := models.NewOrder("b1", []models.Item{{ProductID: "p1", VariantID: "v1", Quantity: 1, Price: 1, SellerID: "s1"}})
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	_ = repo.Save(context.Background(), o)
	restoreErr := errors.New("db gone")
	repo.statusErr, repo.statusErrAfter = restoreErr, 1

	_, err = svc.Cancel(context.Background(), "b1", o.ID)
	if !errors.Is(err, events.ErrPublishUnavailable) || !errors.Is(err, restoreErr) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestGet_Visibility(t *testing.T) {
	svc, _ := newService(t, eventstest.NewPublisher(t, &eventstest.Transport{}))
	o := place(t, svc)
	ctx := context.Background()

	for _, actor := range []string{"b1", "s1", "s2"} {
		if _, err := svc.Get(ctx, actor, o.ID); err != nil {
			t.Errorf("%s: unexpected error %v", actor, err)
		}
	}
	if _, err := svc.Get(ctx, "stranger", o.ID); !errors.Is(err, orderdomain.ErrForbidden) {
		t.Errorf("stranger: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, "b1", "missing"); !errors.Is(err, orderdomain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
