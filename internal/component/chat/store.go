// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package chat

import (
	"context"

	"github.com/starbasehq/starbase/pkg/pagination"
)

// ChatRepository defines the data access contract for chats, channels, and
// messages.
type ChatRepository interface {

	/*
		CreateChat persists a new chat component root.

		Parameters:
		  - context: context.Context
		  - chat: *Chat

		Returns:
		  - error: Persistence failures
	*/
	CreateChat(context context.Context, chat *Chat) error

	/*
		FindChatByID returns the chat with the given component id.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Chat: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindChatByID(context context.Context, id string) (*Chat, error)

	/*
		DeleteChat removes the chat root; its channels and their messages
		cascade.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteChat(context context.Context, id string) error

	/*
		CreateChannel persists a new channel (planet or direct).

		Parameters:
		  - context: context.Context
		  - channel: *Channel

		Returns:
		  - error: Persistence failures
	*/
	CreateChannel(context context.Context, channel *Channel) error

	/*
		FindChannelByID returns a single channel.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Channel: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindChannelByID(context context.Context, id string) (*Channel, error)

	/*
		ListChannels returns all planet channels of a chat, oldest first.

		Parameters:
		  - context: context.Context
		  - chatID: string

		Returns:
		  - []*Channel: Channels in creation order
		  - error: Retrieval failures
	*/
	ListChannels(context context.Context, chatID string) ([]*Channel, error)

	/*
		FindDirectChannel returns the direct channel whose participant set is
		exactly userIDs, if one exists.

		Parameters:
		  - context: context.Context
		  - userIDs: []string (sorted)

		Returns:
		  - *Channel: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindDirectChannel(context context.Context, userIDs []string) (*Channel, error)

	/*
		FindManyChannels returns all channels matching the given ids, keyed by
		id.

		Description: Batch resolution for the per-request loader. Missing ids
		are absent from the map, never an error.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - map[string]*Channel: Found entities keyed by id
		  - error: Retrieval failures
	*/
	FindManyChannels(context context.Context, ids []string) (map[string]*Channel, error)

	/*
		ListDirectChannels returns every direct channel the user participates
		in.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []*Channel: Direct channels
		  - error: Retrieval failures
	*/
	ListDirectChannels(context context.Context, userID string) ([]*Channel, error)

	/*
		DeleteChannel removes a channel and its messages.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteChannel(context context.Context, id string) error

	/*
		CreateMessage persists a new message.

		Parameters:
		  - context: context.Context
		  - message: *Message

		Returns:
		  - error: Persistence failures
	*/
	CreateMessage(context context.Context, message *Message) error

	/*
		FindMessageByID returns a single message.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Message: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindMessageByID(context context.Context, id string) (*Message, error)

	/*
		FindManyMessages returns all messages matching the given ids, keyed by
		id.

		Description: Batch resolution for the per-request loader. Missing ids
		are absent from the map, never an error.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - map[string]*Message: Found entities keyed by id
		  - error: Retrieval failures
	*/
	FindManyMessages(context context.Context, ids []string) (map[string]*Message, error)

	/*
		ListMessages returns a page of a channel's messages, newest first.

		Parameters:
		  - context: context.Context
		  - channelID: string
		  - params: pagination.Params

		Returns:
		  - []*Message: Page of messages
		  - int: Total count
		  - error: Retrieval failures
	*/
	ListMessages(context context.Context, channelID string, params pagination.Params) ([]*Message, int, error)

	/*
		UpdateMessage persists an edited message body and its edit timestamp.

		Parameters:
		  - context: context.Context
		  - message: *Message

		Returns:
		  - error: Persistence failures
	*/
	UpdateMessage(context context.Context, message *Message) error

	/*
		DeleteMessage removes a single message.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteMessage(context context.Context, id string) error

	/*
		ToggleReaction flips one user's emoji reaction on a message. The
		sole-reactor removal must leave no row behind.

		Parameters:
		  - context: context.Context
		  - messageID: string
		  - userID: string
		  - emoji: string

		Returns:
		  - bool: true when the reaction now exists
		  - error: Persistence failures
	*/
	ToggleReaction(context context.Context, messageID, userID, emoji string) (bool, error)

	/*
		ListReactions aggregates reaction counts for one message.

		Parameters:
		  - context: context.Context
		  - messageID: string

		Returns:
		  - []ReactionCount: Per-emoji totals, sorted by emoji
		  - error: Retrieval failures
	*/
	ListReactions(context context.Context, messageID string) ([]ReactionCount, error)
}
