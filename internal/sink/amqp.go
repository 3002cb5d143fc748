package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/roach88/logicflow/internal/engine"
	"github.com/roach88/logicflow/internal/ir"
)

// DefaultExchange receives Binding deliveries when no exchange is configured.
const DefaultExchange = "logicflow.bindings"

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher delivers Binding step content to a topic exchange.
//
// Messages are routed by "<binding type>.<binding name>", so a consumer can
// bind "queue.*" or a single output. The body is the content as canonical
// JSON.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   *slog.Logger
	now      func() time.Time
}

var _ engine.Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to url and declares a durable topic exchange.
// A nil logger uses slog.Default.
func DialAMQP(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := declareExchange(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// declareExchange declares the topic exchange on ch and returns a publisher
// for it. The channel is closed when the declaration fails.
func declareExchange(ch channel, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newAMQPPublisher(ch, exchange, logger)
	p.logger.Info("connected to RabbitMQ", "exchange", exchange)
	return p, nil
}

func newAMQPPublisher(ch channel, exchange string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{ch: ch, exchange: exchange, logger: logger, now: time.Now}
}

// RoutingKey returns the key a delivery is published with.
func RoutingKey(d engine.Delivery) string {
	return d.Type + "." + d.Binding
}

// Publish sends d's content as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, d engine.Delivery) error {
	body, err := ir.MarshalCanonical(ir.Normalize(d.Content))
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	key := RoutingKey(d)
	headers := amqp.Table{"step": d.Step}
	if d.Connection != "" {
		headers["connection"] = d.Connection
	}

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.exchange, key, err)
	}

	p.logger.Debug("published binding",
		"exchange", p.exchange,
		"routing_key", key,
		"step", d.Step)
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
