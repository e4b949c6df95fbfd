// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package chat implements the real-time messaging component variant.

A chat component holds named channels on its planet. Direct-message channels
exist outside any planet and carry an explicit participant list instead.
Every message mutation (send, edit, remove) is published to the message topic
after the store write; live subscribers receive it through a per-event
permission filter, so a member who loses access mid-subscription silently
stops seeing traffic.
*/
package chat

import "time"

// # Entities

// Chat represents the chat component root on a planet.
type Chat struct {
	ID       string `json:"id"`
	PlanetID string `json:"planet_id"`
	Name     string `json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChannelKind distinguishes planet channels from direct-message channels.
type ChannelKind string

const (
	// ChannelPlanet is a channel inside a chat component; access follows the
	// planet's permission tiers.
	ChannelPlanet ChannelKind = "planet"

	// ChannelDirect is a standalone direct-message channel; access is the
	// explicit participant list, nothing else.
	ChannelDirect ChannelKind = "direct"
)

// Channel represents one message stream.
type Channel struct {
	ID   string      `json:"id"`
	Kind ChannelKind `json:"kind"`
	Name string      `json:"name"`

	// ChatID and PlanetID are set for planet channels only.
	ChatID   string `json:"chat_id,omitempty"`
	PlanetID string `json:"planet_id,omitempty"`

	// UserIDs is the participant list of a direct channel; empty for planet
	// channels.
	UserIDs []string `json:"user_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is in a direct channel's list.
func (channel *Channel) HasParticipant(userID string) bool {
	for _, id := range channel.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Message represents a single chat message.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`

	// PlanetID is carried redundantly so fan-out filtering needs no channel
	// lookup; empty for direct channels.
	PlanetID string `json:"planet_id,omitempty"`

	Content string `json:"content"`

	// EditedAt is nil until the first edit.
	EditedAt *time.Time `json:"edited_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ReactionCount is the aggregated view of one emoji on a message.
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// # Field Identifiers

const (
	FieldName    = "name"
	FieldContent = "content"
	FieldUserIDs = "user_ids"
	FieldEmoji   = "emoji"
)
