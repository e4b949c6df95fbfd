// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package pubsub provides the real-time event distribution layer.

A state change (message inserted, notification created) is published once to a
topic; every live subscriber interested in that topic receives the event
through its own queue. The publisher never blocks on a slow consumer, and
subscriber-side authorization is re-evaluated per delivered event, so a
revoked member silently stops receiving updates without an explicit
unsubscribe.

# Transports

Two [Broker] implementations exist behind the same interface: an in-process
broker ([NewMemoryBroker]) for single-node deployments and tests, and a Redis
broker ([NewRedisBroker]) for multi-node fan-out. The transport is selected
once at startup; no subscription-filtering logic may depend on which one is
active.
*/
package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// # Topics

const (
	// TopicMessages carries chat message lifecycle events.
	TopicMessages = "chat.messages"

	// TopicNotifications carries per-user notification events.
	TopicNotifications = "notifications"
)

// # Events

// Kind identifies the lifecycle event carried by an [Event].
type Kind string

const (
	KindMessageSent    Kind = "message.sent"
	KindMessageUpdated Kind = "message.updated"
	KindMessageRemoved Kind = "message.removed"
	KindNotification   Kind = "notification.received"
)

// Event is the structured payload published to a topic. Alongside the changed
// entity it carries enough context (planet, channel, recipient) for
// subscriber-side scope matching and permission re-checks without extra
// lookups on the hot path.
type Event struct {
	Kind Kind `json:"kind"`

	// PlanetID scopes planet-bound events; empty for direct-message channels
	// and user-directed notifications.
	PlanetID string `json:"planet_id,omitempty"`

	// ChannelID scopes chat events to their channel.
	ChannelID string `json:"channel_id,omitempty"`

	// RecipientID scopes notification events to their target user.
	RecipientID string `json:"recipient_id,omitempty"`

	// At is the publish timestamp.
	At time.Time `json:"at"`

	// Entity is the JSON-encoded changed entity.
	Entity json.RawMessage `json:"entity,omitempty"`
}

// # Broker Contract

// Subscription is one live topic subscription. Events arrive on [Events]
// until [Close] is called or the subscription's context ends; the channel is
// closed afterwards.
type Subscription interface {
	// Events returns the subscriber's delivery queue.
	Events() <-chan []byte

	// Close tears the subscription down and releases transport resources.
	// It is safe to call more than once.
	Close() error
}

// Broker is the topic-based publish/subscribe transport.
type Broker interface {
	// Publish delivers payload to every current subscriber of topic.
	// Delivery is fire-and-forget per subscriber: a slow or disconnected
	// consumer never blocks the publisher.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a new subscriber for topic.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Close shuts the broker down and closes every open subscription.
	Close() error
}

// PublishEvent marshals event and publishes it to topic.
func PublishEvent(ctx context.Context, broker Broker, topic string, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return broker.Publish(ctx, topic, payload)
}

// MarshalEntity encodes a changed entity for embedding into an [Event].
// Encoding failures are programming errors surfaced to the caller.
func MarshalEntity(entity any) (json.RawMessage, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
