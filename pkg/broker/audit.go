package broker

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/logger"
)

// AuditHandler logs every consumed envelope with its correlation id. Messages
// the catalog cannot decode are logged and acknowledged, since retrying a
// malformed message cannot succeed.
func AuditHandler(cat *events.Catalog, log logger.Logger) Handler {
	return func(ctx context.Context, msg *message.Message) error {
		h := events.HeadersOf(msg)
		args := []any{
			"message_uuid", msg.UUID,
			"key", events.KeyOf(msg),
			"producer", h.Producer,
			"correlation_id", h.CorrelationID,
			"published_at", h.Timestamp,
		}

		env, err := cat.Decode(msg.Payload)
		if err != nil {
			level := log.WarnContext
			if errors.Is(err, events.ErrUnknownEventType) {
				level = log.InfoContext
			}
			level(ctx, "audit: undecodable event", append(args, "error", err)...)
			return nil
		}
		log.InfoContext(ctx, "audit: event", append(args, "event_type", env.Type().String())...)
		return nil
	}
}
