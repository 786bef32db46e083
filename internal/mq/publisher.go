package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publisher emits measurement lifecycle events to a RabbitMQ topic
// exchange. It owns the broker connection; closing is handled through
// the fx lifecycle.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher dials RabbitMQ, opens a channel and declares the events
// exchange.
func NewPublisher(lc fx.Lifecycle, url, exchange string, logger *zap.Logger) (*Publisher, error) {
	logger.Info("attempting to connect to RabbitMQ...")

	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error("rabbitmq connection failed", zap.Error(err))
		return nil, fmt.Errorf("[RABBITMQ CONNECTION FAILED] cannot connect to RabbitMQ. Please check: 1) RabbitMQ is running, 2) RABBITMQ_URL is correct, 3) Credentials are valid. Error: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	p := &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("rabbitmq connection established successfully",
				zap.String("exchange", exchange))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := p.Close(); err != nil {
				logger.Error("failed to close rabbitmq publisher", zap.Error(err))
				return err
			}
			logger.Info("rabbitmq publisher closed")
			return nil
		},
	})

	return p, nil
}

// MeasurementEvent is emitted after a measurement is created or confirmed.
type MeasurementEvent struct {
	MeasureUUID     string `json:"measure_uuid"`
	CustomerCode    string `json:"customer_code"`
	MeasureType     string `json:"measure_type"`
	MeasureValue    int64  `json:"measure_value"`
	MeasureDatetime string `json:"measure_datetime"`
	HasConfirmed    bool   `json:"has_confirmed"`
}

// PublishMeasurementEvent publishes a measurement event under the given
// routing key.
func (p *Publisher) PublishMeasurementEvent(ctx context.Context, event MeasurementEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published measurement event",
		zap.String("routing_key", routingKey),
		zap.String("measure_uuid", event.MeasureUUID),
		zap.String("customer_code", event.CustomerCode),
	)

	return nil
}

// Close closes the channel and the broker connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
