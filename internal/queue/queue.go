package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/videotube/videotube/internal/config"
	"github.com/videotube/videotube/pkg/models"
)

const (
	EncodingQueueName = "encoding_jobs"
	ExchangeName      = "encoding"
)

// amqpPriority maps job priorities onto the 0-10 AMQP scale.
var amqpPriority = map[string]uint8{
	models.JobPriorityLow:    1,
	models.JobPriorityNormal: 5,
	models.JobPriorityHigh:   9,
}

// Queue provides message queue operations
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New creates a new queue client
func New(cfg config.QueueConfig) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange
	err = channel.ExchangeDeclare(
		ExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		EncodingQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	err = channel.QueueBind(
		EncodingQueueName,
		EncodingQueueName,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &Queue{
		conn:    conn,
		channel: channel,
	}, nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishJob hands an encoding job to the external worker fleet.
func (q *Queue) PublishJob(ctx context.Context, job *models.EncodingJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	priority, ok := amqpPriority[job.Priority]
	if !ok {
		priority = amqpPriority[models.JobPriorityNormal]
	}

	err = q.channel.PublishWithContext(ctx,
		ExchangeName,
		EncodingQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Priority:     priority,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// ConsumeJobs delivers queued encoding jobs to handler until the
// context is cancelled. A handler error requeues the message once; an
// undecodable message is dropped.
func (q *Queue) ConsumeJobs(ctx context.Context, handler func(context.Context, *models.EncodingJob) error) error {
	msgs, err := q.channel.Consume(
		EncodingQueueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("queue channel closed")
			}

			var job models.EncodingJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				msg.Nack(false, false)
				continue
			}

			if err := handler(ctx, &job); err != nil {
				msg.Nack(false, !msg.Redelivered)
				continue
			}
			msg.Ack(false)
		}
	}
}

// GetQueueDepth returns the number of messages waiting in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(EncodingQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}
