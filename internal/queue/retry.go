package queue

import (
	"context"

	"github.com/dw-outreach/outreach/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// RetryCount reads the x-retries header. The broker may hand the number back
// in any integer width.
func RetryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// RetryRoute decides where a failed message goes next: its retry queue with
// an incremented counter, or the dead letter queue once MaxRetries is
// reached.
func RetryRoute(queueName string, headers amqp091.Table) (target string, next amqp091.Table, dead bool) {
	retries := RetryCount(headers)
	next = amqp091.Table{}
	for k, v := range headers {
		next[k] = v
	}
	if retries >= MaxRetries {
		return queueName + "_dlq", next, true
	}
	next["x-retries"] = int32(retries + 1)
	return queueName + "_retry", next, false
}

// Acknowledger is the part of a delivery the retry handling needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// HandleProcessingError republishes a failed delivery to its retry or dead
// letter queue and acks the original. If republishing fails the original is
// requeued. dead reports whether the message was dead-lettered.
func HandleProcessingError(
	ctx context.Context,
	ch Publisher,
	ack Acknowledger,
	queueName string,
	body []byte,
	headers amqp091.Table,
) (dead bool) {
	target, next, dead := RetryRoute(queueName, headers)
	if dead {
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target)
	}
	if err := publish(ctx, ch, "", target, body, next); err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		if err := ack.Nack(false, true); err != nil {
			logger.Error("[Queue] Failed to nack message", "err", err)
		}
		return false
	}
	if err := ack.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
	return dead
}
