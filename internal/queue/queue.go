package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageInterface is a delivered job awaiting settlement. Workers depend on it rather
// than on Message so they can be tested without a broker.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue publishes and delivers jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, job *Job) error

	// Consume delivers decoded jobs until ctx is cancelled or the broker connection drops,
	// at which point both channels are closed. prefetchCount caps unacknowledged deliveries.
	// Every message must be acked or nacked by the caller.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	Close() error
	HealthCheck(ctx context.Context) error
}

var (
	_ JobQueue         = (*RabbitMQQueue)(nil)
	_ DLQPurger        = (*RabbitMQQueue)(nil)
	_ MessageInterface = (*Message)(nil)
)

// Message is a job delivered by RabbitMQ, settled on the channel it arrived on.
type Message struct {
	Job         *Job
	DeliveryTag uint64
	Channel     *amqp.Channel
}

// Ack marks the job done.
func (m *Message) Ack() error {
	return m.Channel.Ack(m.DeliveryTag, false)
}

// Nack rejects the job. Without requeue it is routed to the dead-letter queue.
func (m *Message) Nack(requeue bool) error {
	return m.Channel.Nack(m.DeliveryTag, false, requeue)
}

// GetJob returns the decoded job
func (m *Message) GetJob() *Job {
	return m.Job
}
