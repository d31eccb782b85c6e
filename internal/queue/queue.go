package queue

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// SnapshotQueue carries snapshot render requests to the worker.
	SnapshotQueue = "snapshot_queue"
	// TopicExchange fans graph change notifications out to subscribers.
	TopicExchange = "pubsub_exchange"

	retryDelayMs = 10000
	// MaxRetries is how often a failed message is retried before it is
	// dead-lettered.
	MaxRetries = 10
)

// Queues lists every work queue the backend declares.
var Queues = []string{SnapshotQueue}

// Publisher is the part of an AMQP channel used for publishing.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// ConnectionURL builds the broker URL from RABBITMQ_* variables.
func ConnectionURL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(util.GetEnv("RABBITMQ_USER"), util.GetEnv("RABBITMQ_PASSWORD")),
		Host:   fmt.Sprintf("%s:%s", util.GetEnvString("RABBITMQ_HOST", "localhost"), util.GetEnvString("RABBITMQ_PORT", "5672")),
		Path:   "/",
	}
	return u.String()
}

func Init() (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(ConnectionURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares the topic exchange and, for each queue, the queue
// itself, its dead letter queue and a retry queue that hands messages back
// after retryDelayMs.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	err := ch.ExchangeDeclare(
		TopicExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("ExchangeDeclare failed: %w", err)
	}

	for _, name := range queueNames {
		declarations := []struct {
			name string
			args amqp091.Table
		}{
			{name: name},
			{name: name + "_dlq"},
			{name: name + "_retry", args: amqp091.Table{
				"x-message-ttl":             int32(retryDelayMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			}},
		}
		for _, d := range declarations {
			_, err := ch.QueueDeclare(
				d.name,
				true,  // durable
				false, // autoDelete
				false, // exclusive
				false, // noWait
				d.args,
			)
			if err != nil {
				return fmt.Errorf("QueueDeclare %s failed: %w", d.name, err)
			}
		}
		logger.Debug("[Queue] Declared queue", "queue", name)
	}
	return nil
}

func PublishFIFO(ctx context.Context, ch Publisher, queueName string, data []byte) error {
	return publish(ctx, ch, "", queueName, data, nil)
}

func PublishTopic(ctx context.Context, ch Publisher, topic string, data []byte) error {
	return publish(ctx, ch, TopicExchange, topic, data, nil)
}

func publish(ctx context.Context, ch Publisher, exchange, key string, data []byte, headers amqp091.Table) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Headers:      headers,
	}
	if err := ch.PublishWithContext(ctx, exchange, key, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish to %s%s: %w", exchange, key, err)
	}
	return nil
}
