// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package pubsub

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber queue depth of the in-process
// broker. A subscriber that falls further behind than this starts losing
// events rather than stalling the publisher.
const subscriberBuffer = 64

// MemoryBroker is the in-process [Broker]. Fan-out is a non-blocking send to
// each subscriber's buffered channel; delivery order is preserved per
// subscriber, and a full buffer drops the event for that subscriber only.
type MemoryBroker struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBroker constructs an empty in-process broker.
func NewMemoryBroker(logger *slog.Logger) *MemoryBroker {
	return &MemoryBroker{
		logger: logger,
		topics: make(map[string]map[*memorySubscription]struct{}),
	}
}

// Publish delivers payload to every subscriber of topic without blocking.
func (broker *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	broker.mu.RLock()
	defer broker.mu.RUnlock()

	if broker.closed {
		return nil
	}

	for subscription := range broker.topics[topic] {
		select {
		case subscription.queue <- payload:
		default:
			// Slow consumer: drop rather than backpressure the publisher.
			broker.logger.Warn("pubsub_subscriber_overflow", slog.String("topic", topic))
		}
	}
	return nil
}

// Subscribe registers a new subscriber for topic. The subscription ends when
// Close is called or ctx is cancelled.
func (broker *MemoryBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	subscription := &memorySubscription{
		broker: broker,
		topic:  topic,
		queue:  make(chan []byte, subscriberBuffer),
	}

	broker.mu.Lock()
	if broker.topics[topic] == nil {
		broker.topics[topic] = make(map[*memorySubscription]struct{})
	}
	broker.topics[topic][subscription] = struct{}{}
	broker.mu.Unlock()

	// Tie the subscription's lifetime to the caller's context.
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			_ = subscription.Close()
		}()
	}

	return subscription, nil
}

// Close shuts the broker down and closes every open subscription.
func (broker *MemoryBroker) Close() error {
	broker.mu.Lock()
	defer broker.mu.Unlock()

	if broker.closed {
		return nil
	}
	broker.closed = true

	for _, subscribers := range broker.topics {
		for subscription := range subscribers {
			subscription.closeQueue()
		}
	}
	broker.topics = make(map[string]map[*memorySubscription]struct{})
	return nil
}

// memorySubscription is one subscriber queue of the in-process broker.
type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	queue  chan []byte

	closeOnce sync.Once
}

// Events returns the subscriber's delivery queue.
func (subscription *memorySubscription) Events() <-chan []byte {
	return subscription.queue
}

// Close detaches the subscriber from its topic and closes the queue.
func (subscription *memorySubscription) Close() error {
	subscription.broker.mu.Lock()
	if subscribers, ok := subscription.broker.topics[subscription.topic]; ok {
		delete(subscribers, subscription)
		if len(subscribers) == 0 {
			delete(subscription.broker.topics, subscription.topic)
		}
	}
	subscription.broker.mu.Unlock()

	subscription.closeQueue()
	return nil
}

// closeQueue closes the delivery channel exactly once.
//
// Callers must have already detached the subscription from the topic map (or
// hold the broker lock) so no publisher can still send on the queue.
func (subscription *memorySubscription) closeQueue() {
	subscription.closeOnce.Do(func() {
		close(subscription.queue)
	})
}
