package events

import "errors"

// Sentinel errors for event construction and publishing. Use errors.Is() to check these.
var (
	// ErrMalformedDomainObject indicates a domain object is missing a field its event schema requires.
	ErrMalformedDomainObject = errors.New("malformed domain object")

	// ErrUnknownEventType indicates a serialized envelope carries an event type no schema is registered for.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrInvalidRoutingKey indicates an empty partition key was passed to the message builder.
	ErrInvalidRoutingKey = errors.New("invalid routing key")

	// ErrConnection indicates the broker could not be reached at connect time.
	ErrConnection = errors.New("broker connection failed")

	// ErrPublishUnavailable indicates a critical publish was attempted while the publisher was not connected.
	ErrPublishUnavailable = errors.New("event broker unavailable")

	// ErrPublishFailed indicates the broker rejected or timed out a critical publish.
	ErrPublishFailed = errors.New("event publish failed")
)
