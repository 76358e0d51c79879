// Package eventsvc publishes domain events to RabbitMQ.
package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/trezcool/campus/core"
)

var publishTimeout = 5 * time.Second

type (
	channel interface {
		PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
		Close() error
	}

	// AMQPPublisher publishes events as persistent JSON messages on a direct exchange,
	// routed to the configured queue.
	AMQPPublisher struct {
		conn       *amqp.Connection
		ch         channel
		exchange   string
		routingKey string
		logger     core.Logger
	}
)

var _ core.EventPublisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials the broker and declares the exchange, the queue and their binding.
func NewAMQPPublisher(conf *core.Config, logger core.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(conf.AMQP.URL)
	if err != nil {
		return nil, errors.Wrap(err, "dialing AMQP")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "opening channel")
	}

	if err = setup(ch, conf.AMQP.Exchange, conf.AMQP.Queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "setting up exchange and queue")
	}

	return &AMQPPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   conf.AMQP.Exchange,
		routingKey: conf.AMQP.Queue,
		logger:     logger,
	}, nil
}

func setup(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declaring exchange")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "declaring queue")
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return errors.Wrap(err, "binding queue")
	}
	return nil
}

// Publish sends events one by one and stops at the first failure.
func (p *AMQPPublisher) Publish(ctx context.Context, events ...core.Event) error {
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return errors.Wrapf(err, "encoding %s event", e.Type)
		}

		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = p.ch.PublishWithContext(pubCtx, p.exchange, p.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         e.Type,
			Body:         body,
		})
		cancel()
		if err != nil {
			return errors.Wrapf(err, "publishing %s event", e.Type)
		}
	}
	if p.logger != nil && len(events) > 0 {
		p.logger.Debug(fmt.Sprintf("published %d events to %s", len(events), p.exchange))
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
