package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	amqplib "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/realtime"
)

const (
	exchangeName = "collab.realtime"
	exchangeType = "fanout"

	outboundBuffer = 1024
	publishTimeout = 5 * time.Second

	// Reconnection parameters
	maxReconnectDelay  = 30 * time.Second
	baseReconnectDelay = 1 * time.Second
)

// Deliverer receives broadcasts from other instances.
type Deliverer interface {
	DeliverRemote(env realtime.Envelope)
}

// Bridge relays realtime broadcasts between server instances over a fanout
// exchange. Each instance consumes from its own exclusive queue and ignores
// the envelopes it published itself.
type Bridge struct {
	url      string
	deliver  Deliverer
	outbound chan realtime.Envelope
	logger   *zap.Logger

	// connect runs one broker session and calls connected once it is consuming.
	connect func(ctx context.Context, connected func()) error
	backoff func(attempt int) time.Duration
}

// NewBridge creates a bridge. Start must be called to connect.
func NewBridge(url string, deliver Deliverer, logger *zap.Logger) *Bridge {
	b := &Bridge{
		url:      url,
		deliver:  deliver,
		outbound: make(chan realtime.Envelope, outboundBuffer),
		logger:   logger,
		backoff:  reconnectDelay,
	}
	b.connect = b.session
	return b
}

func reconnectDelay(attempt int) time.Duration {
	return time.Duration(math.Min(
		float64(baseReconnectDelay)*math.Pow(2, float64(attempt)),
		float64(maxReconnectDelay),
	))
}

var _ realtime.Bridge = (*Bridge)(nil)

// Publish queues an envelope for the other instances. It never blocks; when
// the broker is unreachable for long enough the envelope is dropped.
func (b *Bridge) Publish(env realtime.Envelope) {
	select {
	case b.outbound <- env:
	default:
		b.logger.Warn("Realtime bridge buffer full, dropping broadcast",
			zap.String("session_id", env.SessionID),
		)
	}
}

// Start runs the bridge until ctx is cancelled, reconnecting with
// exponential backoff when the connection is lost. The backoff starts over
// after every session that got as far as consuming.
func (b *Bridge) Start(ctx context.Context) {
	attempt := 0
	for {
		err := b.connect(ctx, func() { attempt = 0 })
		if ctx.Err() != nil {
			b.logger.Info("Realtime bridge stopped")
			return
		}

		delay := b.backoff(attempt)
		b.logger.Warn("Realtime bridge lost connection, reconnecting...",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		attempt++
	}
}

// session runs one connection until it fails or ctx is cancelled.
func (b *Bridge) session(ctx context.Context, connected func()) error {
	conn, err := amqplib.Dial(b.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp declare exchange: %w", err)
	}

	// Exclusive, server-named queue: one per instance, gone when we disconnect.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchangeName, false, nil); err != nil {
		return fmt.Errorf("amqp queue bind: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqplib.Error, 1))
	b.logger.Info("Realtime bridge connected", zap.String("exchange", exchangeName), zap.String("queue", q.Name))
	connected()

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason, ok := <-closed:
			if !ok || reason == nil {
				return fmt.Errorf("connection closed")
			}
			return reason
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			b.handleDelivery(delivery.Body)
		case env := <-b.outbound:
			if err := b.publish(ctx, ch, env); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) publish(ctx context.Context, ch *amqplib.Channel, env realtime.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("Failed to marshal realtime envelope", zap.Error(err))
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(pubCtx, exchangeName, "", false, false, amqplib.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now().UTC(),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (b *Bridge) handleDelivery(body []byte) {
	var env realtime.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		b.logger.Error("Failed to unmarshal realtime envelope", zap.Error(err))
		return
	}
	b.deliver.DeliverRemote(env)
}
