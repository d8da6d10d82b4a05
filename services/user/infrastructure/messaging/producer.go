// Package messaging is the auth service's producer facade: it turns user
// domain actions into published events with a fixed delivery policy.
package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/events"
	userevents "github.com/ghuser/marketplace/services/user/domain/events"
	"github.com/ghuser/marketplace/services/user/domain/models"
)

// ProducerName identifies the auth service in message headers.
const ProducerName = "auth-service"

// Publisher is the subset of *events.Publisher the facade needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message, opts events.PublishOptions) (events.Result, error)
}

// Producer publishes user events. Every user event is non-critical:
// account operations succeed while the broker is down.
type Producer struct {
	pub     Publisher
	builder *events.Builder
}

// NewProducer returns a Producer stamping messages with producer.
func NewProducer(pub Publisher, producer string) *Producer {
	return &Producer{pub: pub, builder: events.NewBuilder(producer)}
}

// PublishUserRegistered publishes UserRegistered keyed by the user ID.
func (p *Producer) PublishUserRegistered(ctx context.Context, u *models.User, correlationID string) (events.Result, error) {
	env, err := userevents.NewUserRegistered(u)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, userevents.TopicUserRegistered, u.ID, env, correlationID)
}

// PublishUserUpdated publishes UserUpdated with the changed fields.
func (p *Producer) PublishUserUpdated(ctx context.Context, userID string, changes map[string]any, correlationID string) (events.Result, error) {
	env, err := userevents.NewUserUpdated(userID, changes)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, userevents.TopicUserUpdated, userID, env, correlationID)
}

// PublishUserDeleted publishes UserDeleted keyed by the user ID.
func (p *Producer) PublishUserDeleted(ctx context.Context, userID, correlationID string) (events.Result, error) {
	env, err := userevents.NewUserDeleted(userID)
	if err != nil {
		return events.Result{}, err
	}
	return p.publish(ctx, userevents.TopicUserDeleted, userID, env, correlationID)
}

func (p *Producer) publish(ctx context.Context, topic, key string, env events.Envelope, correlationID string) (events.Result, error) {
	msg, err := p.builder.Build(key, env, correlationID)
	if err != nil {
		return events.Result{}, err
	}
	return p.pub.Publish(ctx, topic, msg, events.PublishOptions{
		Critical:      false,
		CorrelationID: correlationID,
	})
}
