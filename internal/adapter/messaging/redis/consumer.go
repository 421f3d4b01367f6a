package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"payment-intake-service/config"
	"payment-intake-service/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Consumer reads payment events from the stream consumer group and hands them
// to the processor. A message is acked only after the processor returns nil;
// failed messages stay pending and are reclaimed with XAUTOCLAIM once their
// idle time exceeds the configured minimum.
type Consumer struct {
	client    *goredis.Client
	events    config.EventsConfig
	worker    config.WorkerConfig
	consumer  string
	processor ports.EventProcessor
	log       zerolog.Logger
}

// NewConsumer creates a stream consumer. The consumer name defaults to the
// hostname so each worker instance gets its own pending entries list.
func NewConsumer(client *goredis.Client, events config.EventsConfig, worker config.WorkerConfig, processor ports.EventProcessor, log zerolog.Logger) *Consumer {
	name := worker.Consumer
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "worker"
		}
		name = hostname
	}
	return &Consumer{
		client:    client,
		events:    events,
		worker:    worker,
		consumer:  name,
		processor: processor,
		log:       log,
	}
}

// EnsureGroup creates the consumer group if it does not exist yet. The stream
// is created alongside it so workers can start before the first event.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.events.Stream, c.events.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Run consumes events until the context is cancelled. It alternates between
// reading new messages and, on the claim cadence, adopting stale pending
// messages left behind by dead consumers.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.log.Info().
		Str("stream", c.events.Stream).
		Str("group", c.events.Group).
		Str("consumer", c.consumer).
		Msg("Payment event consumer started")

	nextClaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Payment event consumer stopping")
			return nil
		default:
		}

		if !time.Now().Before(nextClaim) {
			if err := c.claimStale(ctx); err != nil && ctx.Err() == nil {
				c.log.Error().Err(err).Msg("Claiming stale payment events failed")
			}
			nextClaim = time.Now().Add(c.worker.ClaimMinIdle)
		}

		if err := c.readBatch(ctx); err != nil && !errors.Is(err, goredis.Nil) {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("Reading payment events failed")
			time.Sleep(time.Second)
		}
	}
}

func (c *Consumer) readBatch(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    c.events.Group,
		Consumer: c.consumer,
		Streams:  []string{c.events.Stream, ">"},
		Count:    c.worker.BatchSize,
		Block:    c.worker.Block,
	}).Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			c.handle(ctx, message)
		}
	}
	return nil
}

// claimStale adopts pending messages whose consumer stopped acking them.
func (c *Consumer) claimStale(ctx context.Context) error {
	messages, _, err := c.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   c.events.Stream,
		Group:    c.events.Group,
		Consumer: c.consumer,
		MinIdle:  c.worker.ClaimMinIdle,
		Start:    "0-0",
		Count:    c.worker.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("claiming stale payment events: %w", err)
	}

	if len(messages) > 0 {
		c.log.Warn().Int("count", len(messages)).Msg("Claimed stale payment events from dead consumer")
	}
	for _, message := range messages {
		c.handle(ctx, message)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, message goredis.XMessage) {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		c.log.Warn().Str("message_id", message.ID).Msg("Dropping payment event without payload field")
		c.ack(ctx, message.ID)
		return
	}

	if err := c.processor.ProcessEvent(ctx, []byte(payload)); err != nil {
		// Left unacked so the message is redelivered after ClaimMinIdle.
		c.log.Error().Err(err).Str("message_id", message.ID).Msg("Processing payment event failed")
		return
	}
	c.ack(ctx, message.ID)
}

func (c *Consumer) ack(ctx context.Context, messageID string) {
	if err := c.client.XAck(ctx, c.events.Stream, c.events.Group, messageID).Err(); err != nil {
		c.log.Warn().Err(err).Str("message_id", messageID).Msg("Acking payment event failed")
	}
}
