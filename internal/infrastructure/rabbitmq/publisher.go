// Package rabbitmq publishes order lifecycle events to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

const (
	publishTimeout = 3 * time.Second
	redialInterval = 5 * time.Second
)

var errBrokerUnavailable = errors.New("rabbitmq unavailable")

// Event is the JSON envelope carried in each message body.
type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data,omitempty"`
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type session struct {
	conn io.Closer
	ch   publishChannel
}

// Publisher keeps one channel open and re-dials on the next publish after the
// broker drops it.
type Publisher struct {
	exchange  string
	logger    *zap.Logger
	connect   func() (*session, error)
	now       func() time.Time
	mu        sync.Mutex
	session   *session
	lastDial  time.Time
	lastError error
}

func NewPublisher(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	p := newPublisher(exchange, logger, func() (*session, error) {
		return dial(url, exchange)
	})

	s, err := p.connect()
	if err != nil {
		return nil, err
	}
	p.session = s
	p.lastDial = p.now()
	return p, nil
}

func newPublisher(exchange string, logger *zap.Logger, connect func() (*session, error)) *Publisher {
	return &Publisher{
		exchange: exchange,
		logger:   logger,
		connect:  connect,
		now:      time.Now,
	}
}

func dial(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return &session{conn: conn, ch: ch}, nil
}

// Publish sends the event with the event type as routing key.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	msg, err := buildMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}

	if err := ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.dropLocked()
		}
		return fmt.Errorf("publishing %s: %w", event.Type, err)
	}
	return nil
}

// channelLocked returns the open channel, dialing again when the previous one
// was closed. Failed dials are retried at most once per redialInterval.
func (p *Publisher) channelLocked() (publishChannel, error) {
	if p.session != nil && !p.session.ch.IsClosed() {
		return p.session.ch, nil
	}
	if p.session != nil {
		p.logger.Warn("rabbitmq channel closed, reconnecting")
		p.dropLocked()
	}

	if !p.lastDial.IsZero() && p.now().Sub(p.lastDial) < redialInterval && p.lastError != nil {
		return nil, fmt.Errorf("%w: %v", errBrokerUnavailable, p.lastError)
	}

	p.lastDial = p.now()
	s, err := p.connect()
	if err != nil {
		p.lastError = err
		p.logger.Warn("rabbitmq reconnect failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", errBrokerUnavailable, err)
	}

	p.lastError = nil
	p.session = s
	p.logger.Info("rabbitmq reconnected", zap.String("exchange", p.exchange))
	return s.ch, nil
}

func (p *Publisher) dropLocked() {
	if p.session == nil {
		return
	}
	_ = p.session.ch.Close()
	_ = p.session.conn.Close()
	p.session = nil
}

func buildMessage(event Event) (amqp.Publishing, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding event %s: %w", event.Type, err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		ContentType:  "application/json",
		Type:         event.Type,
		MessageId:    event.OrderID + ":" + event.Type,
		Body:         body,
	}, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	if err := p.session.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		p.logger.Warn("closing rabbitmq channel", zap.Error(err))
	}
	if err := p.session.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		p.logger.Warn("closing rabbitmq connection", zap.Error(err))
	}
	p.session = nil
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() {}
