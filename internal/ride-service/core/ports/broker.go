package ports

import (
	"context"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

// IRidesBroker is the dispatch bus. Lifecycle events go out on the
// ride_topic exchange; the dispatch consumer in the same process turns
// them into websocket fan-out.
type IRidesBroker interface {
	Close() error
	PublishRideRequested(ctx context.Context, m messagebrokerdto.RideRequested) error
	PublishRideRetracted(ctx context.Context, m messagebrokerdto.RideRetracted) error
	PublishRideStatus(ctx context.Context, m messagebrokerdto.RideStatus) error

	Consume(ctx context.Context, queue, bindingKey string) (<-chan amqp.Delivery, error)
}
