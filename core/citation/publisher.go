package citation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// TopicCitationsExtracted is the routing key of the event published after extraction.
const TopicCitationsExtracted = "citations.extracted"

// EventPublisher publishes engine events.
type EventPublisher interface {
	PublishCitationsExtracted(ctx context.Context, event model.CitationsExtractedEvent) error
}

// NoopPublisher drops all events.
type NoopPublisher struct{}

func (NoopPublisher) PublishCitationsExtracted(ctx context.Context, event model.CitationsExtractedEvent) error {
	return nil
}

// AMQPConfiguration holds the RabbitMQ connection settings.
type AMQPConfiguration struct {
	URL      string
	Exchange string
}

// NewAMQPConfiguration reads KGRAPH_AMQP_URL and KGRAPH_AMQP_EXCHANGE.
// It returns nil if no url is configured.
func NewAMQPConfiguration() *AMQPConfiguration {
	url := helper.GetEnv("KGRAPH_AMQP_URL", "")
	if url == "" {
		return nil
	}
	return &AMQPConfiguration{
		URL:      url,
		Exchange: helper.GetEnv("KGRAPH_AMQP_EXCHANGE", "kgraph.events"),
	}
}

// AMQPPublisher publishes events as JSON to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher connects to RabbitMQ and declares the topic exchange.
func NewAMQPPublisher(config *AMQPConfiguration, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.Dial(config.URL)
	if err != nil {
		return nil, helper.NewError("amqp dial", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, helper.NewError("amqp channel", err)
	}

	err = ch.ExchangeDeclare(
		config.Exchange, // name
		"topic",         // type
		true,            // durable
		false,           // autoDelete
		false,           // internal
		false,           // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, helper.NewError("amqp exchange declare", err)
	}

	logger.Info("Connected event publisher", slog.String("exchange", config.Exchange))

	return &AMQPPublisher{conn: conn, channel: ch, exchange: config.Exchange, logger: logger}, nil
}

// PublishCitationsExtracted publishes the event with routing key citations.extracted.
func (p *AMQPPublisher) PublishCitationsExtracted(ctx context.Context, event model.CitationsExtractedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return helper.NewError("marshal event", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, TopicCitationsExtracted, false, false, publishing)
	if err != nil {
		return helper.NewError(fmt.Sprintf("publish %s", TopicCitationsExtracted), err)
	}

	return nil
}

// Close closes channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
