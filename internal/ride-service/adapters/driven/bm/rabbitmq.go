package bm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ridehail/config"
	"ridehail/internal/mylogger"
	"ridehail/internal/ride-service/core/ports"

	messagebrokerdto "ridehail/internal/ride-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchange       = "ride_topic"
	reconnInterval = 10 * time.Second
)

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMqconfig
	mylog        mylogger.Logger
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	mu           sync.Mutex
}

// New connects to RabbitMQ and declares the ride_topic exchange.
func New(ctx context.Context, rabbitmqCfg config.RabbitMqconfig, mylog mylogger.Logger) (ports.IRidesBroker, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return r, nil
}

func (r *RabbitMQ) PublishRideRequested(ctx context.Context, m messagebrokerdto.RideRequested) error {
	return r.publish(ctx, messagebrokerdto.KeyRideRequested, m)
}

func (r *RabbitMQ) PublishRideRetracted(ctx context.Context, m messagebrokerdto.RideRetracted) error {
	return r.publish(ctx, messagebrokerdto.KeyRideRetracted, m)
}

func (r *RabbitMQ) PublishRideStatus(ctx context.Context, m messagebrokerdto.RideStatus) error {
	return r.publish(ctx, fmt.Sprintf("%s.%s", messagebrokerdto.KeyRideStatus, m.Status), m)
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, message any) error {
	if r.conn.IsClosed() {
		r.mylog.Action("publish").Error("rabbitmq connection is closed", errors.New("closed conn"))
		go r.reconnect()
		return errors.New("connection is closed")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", routingKey, err)
	}

	return r.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume declares the queue, binds it to the exchange with the given key
// and starts delivery.
func (r *RabbitMQ) Consume(ctx context.Context, queue, bindingKey string) (<-chan amqp.Delivery, error) {
	if _, err := r.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := r.ch.QueueBind(queue, bindingKey, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s to %s: %w", queue, bindingKey, err)
	}
	return r.ch.ConsumeWithContext(ctx, queue, "", true, false, false, false, nil)
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}

	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%v:%v@%v:%v/%v",
		r.cfg.User,
		r.cfg.Password,
		r.cfg.Host,
		r.cfg.Port,
		r.cfg.VHost,
	))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	r.conn = conn
	r.ch = ch
	return nil
}

// reconnect retries in the background until the connection is back or the
// service context ends.
func (r *RabbitMQ) reconnect() {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	log := r.mylog.Action("rabbitmq_reconnect")
	ticker := time.NewTicker(reconnInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.connect(); err != nil {
				log.Warn("reconnect attempt failed", "err", err.Error())
				continue
			}
			log.Info("rabbitmq connection restored")
			return
		}
	}
}
