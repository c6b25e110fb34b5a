package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EmailPayload is the message body consumed by the mail delivery worker.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// AMQPSender publishes notifications to a durable RabbitMQ queue.
type AMQPSender struct {
	mu      sync.Mutex
	channel *amqp.Channel
	queue   string
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}

// NewAMQPSender opens a channel on conn and declares queue.
func NewAMQPSender(conn *amqp.Connection, queue string) (*AMQPSender, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQPSender{channel: ch, queue: queue}, nil
}

func (s *AMQPSender) Send(ctx context.Context, recipient, subject, body string) error {
	data, err := json.Marshal(EmailPayload{To: recipient, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"message_type": "JSON",
		},
	}

	// amqp channels are not safe for concurrent publishing
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.channel.PublishWithContext(ctx, "", s.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (s *AMQPSender) Close() error {
	return s.channel.Close()
}

// Open returns an AMQPSender publishing to queue when url is set, and a
// LogSender otherwise. closeFn releases the channel and the connection.
func Open(url, queue string, log *zap.Logger) (sender Sender, closeFn func() error, err error) {
	if url == "" {
		return NewLogSender(log), func() error { return nil }, nil
	}

	conn, err := Dial(url)
	if err != nil {
		return nil, nil, err
	}
	s, err := NewAMQPSender(conn, queue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	closeFn = func() error {
		chErr := s.Close()
		if err := conn.Close(); err != nil {
			return err
		}
		return chErr
	}
	return s, closeFn, nil
}
