package consumer

import (
	"context"
	"encoding/json"
	"sync"

	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/ports"
	"ridehail/internal/ride-service/core/services"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	requestQueue = "dispatch_requests"
	requestBind  = "ride.request.*"
	statusQueue  = "dispatch_status"
	statusBind   = "ride.status.*"
)

// DispatchConsumer drains the ride_topic exchange and hands each message
// to the dispatch notifier for websocket fan-out.
type DispatchConsumer struct {
	ctx      context.Context
	mylog    mylogger.Logger
	broker   ports.IRidesBroker
	dispatch *services.DispatchService
	wg       sync.WaitGroup
}

func New(ctx context.Context, log mylogger.Logger, broker ports.IRidesBroker, dispatch *services.DispatchService) *DispatchConsumer {
	return &DispatchConsumer{
		ctx:      ctx,
		mylog:    log,
		broker:   broker,
		dispatch: dispatch,
	}
}

func (dc *DispatchConsumer) Run() error {
	log := dc.mylog.Action("dispatch_consumer_run")

	requests, err := dc.broker.Consume(dc.ctx, requestQueue, requestBind)
	if err != nil {
		return err
	}
	statuses, err := dc.broker.Consume(dc.ctx, statusQueue, statusBind)
	if err != nil {
		return err
	}

	dc.wg.Add(2)
	go dc.loop(requests, dc.handleRequest)
	go dc.loop(statuses, dc.handleStatus)

	log.Info("dispatch consumer started",
		"request_binding", requestBind, "status_binding", statusBind)
	return nil
}

// Stop waits for the consume loops to drain after the context is done.
func (dc *DispatchConsumer) Stop() {
	dc.wg.Wait()
}

func (dc *DispatchConsumer) loop(msgs <-chan amqp.Delivery, handle func(amqp.Delivery)) {
	defer dc.wg.Done()

	for {
		select {
		case <-dc.ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(msg)
		}
	}
}

func (dc *DispatchConsumer) handleRequest(msg amqp.Delivery) {
	log := dc.mylog.Action("handleRequest").With("routing_key", msg.RoutingKey)

	switch msg.RoutingKey {
	case messagebrokerdto.KeyRideRequested:
		var m messagebrokerdto.RideRequested
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			log.Error("cannot decode ride request", err)
			return
		}
		dc.dispatch.HandleRideRequested(m)

	case messagebrokerdto.KeyRideRetracted:
		var m messagebrokerdto.RideRetracted
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			log.Error("cannot decode retraction", err)
			return
		}
		dc.dispatch.HandleRideRetracted(m)

	default:
		log.Warn("unexpected routing key on request queue")
	}
}

func (dc *DispatchConsumer) handleStatus(msg amqp.Delivery) {
	log := dc.mylog.Action("handleStatus").With("routing_key", msg.RoutingKey)

	var m messagebrokerdto.RideStatus
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		log.Error("cannot decode status message", err)
		return
	}
	dc.dispatch.HandleRideStatus(m)
}
