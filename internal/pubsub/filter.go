// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Predicate decides whether one published event may be delivered to one
// subscriber. It runs per event, against fresh state, so an authorization
// change between subscription setup and delivery takes effect on the very
// next event. A rejection is silent: the subscriber never learns the event
// existed.
type Predicate func(ctx context.Context, event Event) bool

// FilteredSubscription is a topic subscription whose deliveries have passed
// scope matching and a per-event permission re-check.
type FilteredSubscription struct {
	inner  Subscription
	events chan Event
	cancel context.CancelFunc
}

// SubscribeFiltered subscribes to topic on broker and forwards only the
// events allow admits. Undecodable payloads are dropped and logged; they can
// only result from a version-skewed publisher.
//
// The returned subscription ends when ctx is cancelled or Close is called.
func SubscribeFiltered(ctx context.Context, broker Broker, topic string, allow Predicate, logger *slog.Logger) (*FilteredSubscription, error) {
	subscribeCtx, cancel := context.WithCancel(ctx)

	inner, err := broker.Subscribe(subscribeCtx, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	filtered := &FilteredSubscription{
		inner:  inner,
		events: make(chan Event, subscriberBuffer),
		cancel: cancel,
	}

	go filtered.run(subscribeCtx, topic, allow, logger)

	return filtered, nil
}

// Events returns the authorized delivery queue. It is closed when the
// subscription ends.
func (subscription *FilteredSubscription) Events() <-chan Event {
	return subscription.events
}

// Close tears the subscription down.
func (subscription *FilteredSubscription) Close() error {
	subscription.cancel()
	return subscription.inner.Close()
}

// run decodes, filters, and forwards events until the inner subscription
// closes.
func (subscription *FilteredSubscription) run(ctx context.Context, topic string, allow Predicate, logger *slog.Logger) {
	defer close(subscription.events)

	for payload := range subscription.inner.Events() {
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Warn("pubsub_undecodable_event",
				slog.String("topic", topic),
				slog.Any("error", err),
			)
			continue
		}

		// Per-event authorization: scope match + permission re-check.
		// Rejections are silent.
		if !allow(ctx, event) {
			continue
		}

		select {
		case subscription.events <- event:
		default:
			// Authorized but the consumer is stalled; drop rather than
			// block the filter loop.
			logger.Warn("pubsub_filtered_overflow", slog.String("topic", topic))
		}
	}
}
