package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/slotwise/internal/notification/domain"
	"go.uber.org/zap"
)

// Publisher is the interface implemented by event publishers.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body any) error
	Close()
}

// AMQPPublisher publishes JSON events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	declared map[string]bool
}

// LogPublisher stands in when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, exchange, routingKey string, _ any) error {
	p.log.Debug("event publish skipped, no broker configured",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
	)
	return nil
}

func (p *LogPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("amqp url scheme must be amqp:// or amqps://")
	}
	return clean, nil
}

func NewAMQPPublisher(amqpURL string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch, declared: map[string]bool{}}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return errors.New("rabbitmq channel not initialized")
	}
	if !p.declared[exchange] {
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[exchange] = true
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         payload,
		Timestamp:    time.Now().UTC(),
	})
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Event is the wire payload published for each notification.
type Event struct {
	Template   domain.Template  `json:"template"`
	Recipient  domain.Recipient `json:"recipient"`
	Data       map[string]any   `json:"data"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Channel fans notifications out as events so push/SMS workers can consume them.
type Channel struct {
	publisher Publisher
	exchange  string
	now       func() time.Time
}

func NewChannel(publisher Publisher, exchange string) *Channel {
	return &Channel{
		publisher: publisher,
		exchange:  exchange,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (c *Channel) Name() string { return "events" }

func (c *Channel) Deliver(ctx context.Context, msg domain.Message) error {
	return c.publisher.Publish(ctx, c.exchange, "notification."+string(msg.Template), Event{
		Template:   msg.Template,
		Recipient:  msg.Recipient,
		Data:       msg.Data,
		OccurredAt: c.now(),
	})
}
