package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"payment-intake-service/config"
	"payment-intake-service/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// Publisher implements ports.EventPublisher on Redis. Enqueue appends the
// event to the stream consumed by the worker group; Broadcast fans the same
// JSON out on a pub/sub channel for ephemeral listeners.
type Publisher struct {
	client *goredis.Client
	cfg    config.EventsConfig
}

// NewPublisher creates a Redis-backed event publisher.
func NewPublisher(client *goredis.Client, cfg config.EventsConfig) *Publisher {
	return &Publisher{client: client, cfg: cfg}
}

// Enqueue appends the event to the payment event stream.
func (p *Publisher) Enqueue(ctx context.Context, event *domain.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding payment event: %w", err)
	}

	args := &goredis.XAddArgs{
		Stream: p.cfg.Stream,
		Values: map[string]any{"payload": payload},
	}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("adding payment event to stream: %w", err)
	}
	return nil
}

// Broadcast publishes the event on the pub/sub channel. Delivery is
// best-effort: subscribers that are not connected miss the message.
func (p *Publisher) Broadcast(ctx context.Context, event *domain.PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding payment event: %w", err)
	}

	if err := p.client.Publish(ctx, p.cfg.Channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing payment event: %w", err)
	}
	return nil
}
