package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	jobsRoutingKey = "jobs"
	dlqRoutingKey  = "dlq"
)

// Topology names the RabbitMQ objects the job queue declares.
type Topology struct {
	Queue           string
	DeadLetterQueue string
	Exchange        string
	// DelayedExchange needs the rabbitmq_delayed_message_exchange plugin. Without it,
	// deferred jobs are delivered at once and held by the worker.
	DelayedExchange string
}

// DefaultTopology is what the API and worker share.
func DefaultTopology() Topology {
	return Topology{
		Queue:           "climb_jobs",
		DeadLetterQueue: "climb_jobs_dlq",
		Exchange:        "crux_jobs",
		DelayedExchange: "crux_jobs_delayed",
	}
}

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn             *amqp.Connection
	channel          *amqp.Channel
	topology         Topology
	delayedAvailable bool
}

// NewRabbitMQQueue dials amqpURL and declares DefaultTopology.
func NewRabbitMQQueue(amqpURL string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	q := &RabbitMQQueue{conn: conn, topology: DefaultTopology()}
	if err := q.declare(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}
	return q, nil
}

func (q *RabbitMQQueue) declare() error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	t := q.topology

	// A missing plugin closes the channel, so probe it first and reopen on failure.
	err = ch.ExchangeDeclare(t.DelayedExchange, "x-delayed-message", true, false, false, false,
		amqp.Table{"x-delayed-type": "direct"})
	q.delayedAvailable = err == nil
	if err != nil && ch.IsClosed() {
		if ch, err = q.conn.Channel(); err != nil {
			return fmt.Errorf("reopen channel: %w", err)
		}
	}
	q.channel = ch

	if err := ch.ExchangeDeclare(t.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", t.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(t.DeadLetterQueue, dlqRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", t.DeadLetterQueue, err)
	}
	_, err = ch.QueueDeclare(t.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    t.Exchange,
		"x-dead-letter-routing-key": dlqRoutingKey,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, jobsRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", t.Queue, err)
	}
	if q.delayedAvailable {
		if err := ch.QueueBind(t.Queue, jobsRoutingKey, t.DelayedExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to delayed exchange: %w", t.Queue, err)
		}
	}
	return nil
}

// Enqueue publishes job persistently. A future NotBefore goes through the delayed exchange
// when available and NotAfter becomes the message TTL.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	exchange, msg, err := buildPublishing(job, q.topology, q.delayedAvailable, time.Now())
	if err != nil {
		return err
	}
	if err := q.channel.PublishWithContext(ctx, exchange, jobsRoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	return nil
}

func buildPublishing(job *Job, t Topology, delayed bool, now time.Time) (string, amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return "", amqp.Publishing{}, fmt.Errorf("failed to marshal job: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Type:         string(job.Type),
		// The DLQ sweeper ages messages by publish time.
		Timestamp: now,
	}
	if job.NotAfter != nil {
		if ttl := job.NotAfter.Sub(now); ttl > 0 {
			msg.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
		}
	}

	exchange := t.Exchange
	if delayed && job.NotBefore != nil {
		if delay := job.NotBefore.Sub(now); delay > 0 {
			exchange = t.DelayedExchange
			msg.Headers = amqp.Table{"x-delay": delay.Milliseconds()}
		}
	}
	return exchange, msg, nil
}

// Consume delivers jobs on a dedicated channel. Undecodable bodies are dead-lettered and
// reported on the error channel; jobs past NotAfter are acked and dropped.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.topology.Queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgs := make(chan *Message, prefetchCount)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(msgs)
		defer func() { _ = ch.Close() }()

		for {
			var (
				d  amqp.Delivery
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case d, ok = <-deliveries:
			}
			if !ok {
				if ctx.Err() == nil {
					errs <- errors.New("delivery channel closed")
				}
				return
			}

			job, err := decodeJob(d.Body)
			if err != nil {
				_ = d.Nack(false, false)
				select {
				case errs <- err:
				default:
				}
				continue
			}
			if job.ExpiredAt(time.Now()) {
				_ = d.Ack(false)
				continue
			}

			select {
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			case msgs <- &Message{Job: job, DeliveryTag: d.DeliveryTag, Channel: ch}:
			}
		}
	}()

	return msgs, errs, nil
}

func decodeJob(body []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.Type == "" {
		return nil, errors.New("job has no type")
	}
	return &job, nil
}

// DelayedExchangeAvailable reports whether the delayed message plugin was found at setup
func (q *RabbitMQQueue) DelayedExchangeAvailable() bool {
	return q.delayedAvailable
}

// HealthCheck verifies the connection and channel are open and the queue exists
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return errors.New("rabbitmq channel is closed")
	}
	if _, err := q.channel.QueueDeclarePassive(q.topology.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue %s unavailable: %w", q.topology.Queue, err)
	}
	return nil
}

// PurgeOlderThan drops dead-lettered messages published before now minus retention.
// Younger messages are returned to the DLQ untouched.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return 0, fmt.Errorf("failed to open purge channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	state, err := ch.QueueDeclarePassive(q.topology.DeadLetterQueue, true, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	purged := 0
	var lastKept uint64
	// Only the messages present now are inspected, so requeued ones are not seen twice.
	for i := 0; i < state.Messages && ctx.Err() == nil; i++ {
		msg, ok, err := ch.Get(q.topology.DeadLetterQueue, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			break
		}
		if publishedBefore(msg.Timestamp, cutoff) {
			if err := msg.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to ack purged message: %w", err)
			}
			purged++
			continue
		}
		lastKept = msg.DeliveryTag
	}

	if lastKept > 0 {
		if err := ch.Nack(lastKept, true, true); err != nil {
			return purged, fmt.Errorf("failed to requeue kept messages: %w", err)
		}
	}
	return purged, nil
}

// publishedBefore treats a missing timestamp as young so unknown messages are kept.
func publishedBefore(ts, cutoff time.Time) bool {
	return !ts.IsZero() && ts.Before(cutoff)
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
