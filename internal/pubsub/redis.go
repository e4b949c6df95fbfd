// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroker is the cross-process [Broker] backed by Redis PUB/SUB. Every
// application node publishes to and subscribes from the same Redis channels,
// so an event raised on one node reaches subscribers connected to any node.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

// NewRedisBroker constructs a broker over an established Redis client.
// The prefix namespaces channels so several environments can share one Redis.
func NewRedisBroker(client *redis.Client, prefix string, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{client: client, logger: logger, prefix: prefix}
}

// channelName maps a logical topic onto a namespaced Redis channel.
func (broker *RedisBroker) channelName(topic string) string {
	return broker.prefix + ":" + topic
}

// Publish delivers payload to topic via Redis PUBLISH.
func (broker *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := broker.client.Publish(ctx, broker.channelName(topic), payload).Err(); err != nil {
		return fmt.Errorf("pubsub: redis publish to %q failed: %w", topic, err)
	}
	return nil
}

// Subscribe opens a dedicated Redis subscription for topic and pumps its
// messages into a local delivery queue.
func (broker *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := broker.client.Subscribe(ctx, broker.channelName(topic))

	// Force the subscription handshake so a dead Redis fails fast here
	// instead of silently delivering nothing.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("pubsub: redis subscribe to %q failed: %w", topic, err)
	}

	subscription := &redisSubscription{
		pubsub: pubsub,
		topic:  topic,
		logger: broker.logger,
		queue:  make(chan []byte, subscriberBuffer),
	}

	go subscription.pump(ctx)

	return subscription, nil
}

// Close is a no-op for the shared Redis client; individual subscriptions own
// their connections and the client is closed by the process shutdown path.
func (broker *RedisBroker) Close() error {
	return nil
}

// redisSubscription adapts one *redis.PubSub connection to [Subscription].
type redisSubscription struct {
	pubsub *redis.PubSub
	topic  string
	logger *slog.Logger
	queue  chan []byte
}

// pump forwards Redis messages into the local queue until the subscription
// or its context ends.
func (subscription *redisSubscription) pump(ctx context.Context) {
	defer close(subscription.queue)

	incoming := subscription.pubsub.Channel()
	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			select {
			case subscription.queue <- []byte(message.Payload):
			default:
				// Local consumer fell behind; drop, matching the in-process
				// broker's behavior.
				subscription.logger.Warn("pubsub_subscriber_overflow", slog.String("topic", subscription.topic))
			}
		case <-ctx.Done():
			_ = subscription.pubsub.Close()
			return
		}
	}
}

// Events returns the subscriber's delivery queue.
func (subscription *redisSubscription) Events() <-chan []byte {
	return subscription.queue
}

// Close tears down the underlying Redis subscription. The pump goroutine
// notices the closed connection and closes the delivery queue.
func (subscription *redisSubscription) Close() error {
	return subscription.pubsub.Close()
}
