package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// AMQPRenderer publishes built notifications to a RabbitMQ exchange for a
// device gateway to consume.
type AMQPRenderer struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	exchange   string
	routingKey string
}

// NewAMQPRenderer dials the broker and declares a durable direct exchange.
func NewAMQPRenderer(url, exchange, routingKey string) (*AMQPRenderer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &AMQPRenderer{conn: conn, ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

func (a *AMQPRenderer) Notify(ctx context.Context, n domain.Rendered) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	// amqp.Channel is not safe for concurrent publishes.
	a.mu.Lock()
	defer a.mu.Unlock()

	err = a.ch.PublishWithContext(ctx, a.exchange, a.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    strconv.Itoa(n.ID),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish notification %d: %w", n.ID, err)
	}
	return nil
}

func (a *AMQPRenderer) Close() error {
	_ = a.ch.Close()
	return a.conn.Close()
}

var _ Renderer = (*AMQPRenderer)(nil)
