// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package notification implements persisted per-user notifications.

A notification is written once, fanned out live over the broker's
notification topic, and then owned entirely by its recipient: only they can
list, mark, or clear it. Live delivery is filtered by recipient id at the
subscription layer, so the same topic safely carries every user's traffic.
*/
package notification

import "time"

// Notification is one user-directed event.
type Notification struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipient_id"`

	// Kind is a machine-readable category ("message.received",
	// "planet.joined").
	Kind string `json:"kind"`

	Message string `json:"message"`

	// SourceID points at the entity that caused the notification (a channel,
	// a planet); empty when there is none.
	SourceID string `json:"source_id,omitempty"`

	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
