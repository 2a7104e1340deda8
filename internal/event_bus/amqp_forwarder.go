package event_bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of an AMQP channel the forwarder needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AmqpForwarder republishes bus events to a topic exchange, using the event type as routing key.
type AmqpForwarder struct {
	publisher Publisher
	exchange  string
	closeFn   func() error
}

type envelope struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewAmqpForwarder(publisher Publisher, exchange string) *AmqpForwarder {
	return &AmqpForwarder{publisher: publisher, exchange: exchange, closeFn: func() error { return nil }}
}

// DialAmqpForwarder connects to the broker and declares a durable topic exchange.
func DialAmqpForwarder(url, exchange string) (*AmqpForwarder, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	forwarder := NewAmqpForwarder(channel, exchange)
	forwarder.closeFn = func() error {
		channel.Close()
		return conn.Close()
	}
	return forwarder, nil
}

// Forward subscribes the forwarder to the given event types on the bus.
// Broker failures are logged and never reported back to the publisher of the event.
func (f *AmqpForwarder) Forward(bus *EventBus, types ...EventType) (unsubscribe func()) {
	unsubscribes := make([]func(), 0, len(types))
	for _, eventType := range types {
		unsubscribes = append(unsubscribes, bus.Subscribe(eventType, func(e Event) error {
			if err := f.publish(e); err != nil {
				log.WithField("event", e.Type).Errorf("failed to forward event: %v", err)
			}
			return nil
		}))
	}
	return func() {
		for _, u := range unsubscribes {
			u()
		}
	}
}

func (f *AmqpForwarder) publish(e Event) error {
	body, err := json.Marshal(envelope{Type: e.Type, Timestamp: e.Timestamp, Data: e.Data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.Context()), publishTimeout)
	defer cancel()

	err = f.publisher.PublishWithContext(
		ctx,
		f.exchange,     // exchange
		string(e.Type), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.Timestamp,
			Type:         string(e.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	log.Debugf("Forwarded event %s to exchange %s", e.Type, f.exchange)
	return nil
}

func (f *AmqpForwarder) Close() error {
	return f.closeFn()
}
