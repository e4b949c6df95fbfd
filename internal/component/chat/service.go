// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package chat

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/access"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/pubsub"
	"github.com/starbasehq/starbase/pkg/pagination"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// Notifier delivers user-directed notifications. Direct messages notify the
// other participants; planet channel traffic relies on the live stream alone.
type Notifier interface {
	Notify(ctx context.Context, recipientID, kind, message, sourceID string) error
}

// Service implements chat component use cases and the variant lifecycle.
//
// Message mutations publish to [pubsub.TopicMessages] after the store write.
// Publishing is best-effort: a broker failure is logged and the request
// still succeeds, because the row is the source of truth and clients resync
// on reconnect.
type Service struct {
	chatRepository ChatRepository
	engine         *perm.Engine
	broker         pubsub.Broker
	notifier       Notifier
	logger         *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
// notifier may be nil; direct messages then skip notification delivery.
func NewService(chatRepo ChatRepository, engine *perm.Engine, broker pubsub.Broker, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		chatRepository: chatRepo,
		engine:         engine,
		broker:         broker,
		notifier:       notifier,
		logger:         logger,
	}
}

// # Variant Lifecycle

// Kind identifies this variant in the component registry.
func (service *Service) Kind() component.Kind { return component.KindChat }

/*
Create provisions a chat with one default channel for a freshly attached
component.

Parameters:
  - context: context.Context
  - planetID: string
  - ownerID: string
  - name: string

Returns:
  - string: New component id
  - error: Persistence failures
*/
func (service *Service) Create(context context.Context, planetID, _, name string) (string, error) {
	chat := &Chat{
		ID:       uuid.New(),
		PlanetID: planetID,
		Name:     name,
	}
	if err := service.chatRepository.CreateChat(context, chat); err != nil {
		return "", err
	}

	general := &Channel{
		ID:       uuid.New(),
		Kind:     ChannelPlanet,
		Name:     "general",
		ChatID:   chat.ID,
		PlanetID: planetID,
	}
	if err := service.chatRepository.CreateChannel(context, general); err != nil {
		return "", err
	}
	return chat.ID, nil
}

/*
Delete cascades the chat with its channels and messages when the component
is detached.

Parameters:
  - context: context.Context
  - componentID: string

Returns:
  - error: Persistence failures
*/
func (service *Service) Delete(context context.Context, componentID string) error {
	return service.chatRepository.DeleteChat(context, componentID)
}

// # Channels

/*
ListChannels returns the chat's channels, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - chatID: string

Returns:
  - []*Channel: Channels in creation order
  - error: apperr NOT_FOUND when the chat or planet is not visible
*/
func (service *Service) ListChannels(context context.Context, userID, chatID string) ([]*Channel, error) {
	chat, err := service.chatRepository.FindChatByID(context, chatID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, chat.PlanetID); err != nil {
		return nil, err
	}
	return service.chatRepository.ListChannels(context, chatID)
}

/*
CreateChannel adds a channel to the chat. Requires the FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - chatID: string
  - name: string

Returns:
  - *Channel: Created entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) CreateChannel(context context.Context, userID, chatID, name string) (*Channel, error) {
	chat, err := service.chatRepository.FindChatByID(context, chatID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireFullWrite(context, service.engine, userID, chat.PlanetID); err != nil {
		return nil, err
	}

	channel := &Channel{
		ID:       uuid.New(),
		Kind:     ChannelPlanet,
		Name:     strings.ToLower(name),
		ChatID:   chatID,
		PlanetID: chat.PlanetID,
	}
	if err := service.chatRepository.CreateChannel(context, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

/*
DeleteChannel removes a planet channel and its messages. Requires the
FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - channelID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DeleteChannel(context context.Context, userID, channelID string) error {
	channel, err := service.chatRepository.FindChannelByID(context, channelID)
	if err != nil {
		return err
	}
	if channel.Kind != ChannelPlanet {
		return apperr.ValidationError("Direct channels cannot be deleted")
	}
	if err := access.RequireFullWrite(context, service.engine, userID, channel.PlanetID); err != nil {
		return err
	}
	return service.chatRepository.DeleteChannel(context, channelID)
}

// # Direct Channels

/*
OpenDirectChannel finds or creates the direct channel between the caller and
the given participants.

Description: The participant set always includes the caller and is
deduplicated and sorted, so the same set of people always lands in the same
channel.

Parameters:
  - context: context.Context
  - userID: string
  - participantIDs: []string

Returns:
  - *Channel: The (possibly pre-existing) direct channel
  - error: apperr VALIDATION_ERROR, NOT_FOUND, or storage errors
*/
func (service *Service) OpenDirectChannel(context context.Context, userID string, participantIDs []string) (*Channel, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	set := map[string]bool{userID: true}
	for _, id := range participantIDs {
		if id != "" {
			set[id] = true
		}
	}
	if len(set) < 2 {
		return nil, apperr.ValidationError("A direct channel needs at least one other participant",
			apperr.FieldError{Field: FieldUserIDs, Message: "must name another user"})
	}

	members := make([]string, 0, len(set))
	for id := range set {
		// Every participant must resolve to a real account.
		if _, err := service.engine.ResolveSubject(context, id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	sort.Strings(members)

	existing, err := service.chatRepository.FindDirectChannel(context, members)
	if err == nil {
		return existing, nil
	}
	// Only an absent channel falls through to creation; a failing store must
	// not spawn a duplicate once it recovers.
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	channel := &Channel{
		ID:      uuid.New(),
		Kind:    ChannelDirect,
		Name:    "direct",
		UserIDs: members,
	}
	if err := service.chatRepository.CreateChannel(context, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

/*
ListDirectChannels returns every direct channel the caller participates in.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []*Channel: Direct channels, newest first
  - error: Storage errors
*/
func (service *Service) ListDirectChannels(context context.Context, userID string) ([]*Channel, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return service.chatRepository.ListDirectChannels(context, userID)
}

// # Messages

/*
ListMessages returns a page of a channel's history.

Description: Planet channels follow the Read tier; direct channels are
visible to participants only, and to everyone else the channel does not
exist.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - channelID: string
  - params: pagination.Params

Returns:
  - []*Message: Page of messages, newest first
  - int: Total count
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) ListMessages(context context.Context, userID, channelID string, params pagination.Params) ([]*Message, int, error) {
	channel, err := service.requireChannelRead(context, userID, channelID)
	if err != nil {
		return nil, 0, err
	}
	return service.chatRepository.ListMessages(context, channel.ID, params)
}

/*
SendMessage appends a message to a channel and fans it out.

Description: Planet channels require the PublicWrite tier; direct channels
require participation. The event is published after the row exists.

Parameters:
  - context: context.Context
  - userID: string
  - channelID: string
  - content: string

Returns:
  - *Message: Created entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) SendMessage(context context.Context, userID, channelID, content string) (*Message, error) {
	channel, err := service.requireChannelWrite(context, userID, channelID)
	if err != nil {
		return nil, err
	}

	message := &Message{
		ID:        uuid.New(),
		ChannelID: channel.ID,
		AuthorID:  userID,
		PlanetID:  channel.PlanetID,
		Content:   content,
	}
	if err := service.chatRepository.CreateMessage(context, message); err != nil {
		return nil, err
	}

	service.publish(context, pubsub.KindMessageSent, message)
	service.notifyDirect(context, channel, message)
	return message, nil
}

// notifyDirect fans a direct message out as notifications to the other
// participants. Best-effort: a failed notification never fails the send.
func (service *Service) notifyDirect(context context.Context, channel *Channel, message *Message) {
	if service.notifier == nil || channel.Kind != ChannelDirect {
		return
	}
	for _, participantID := range channel.UserIDs {
		if participantID == message.AuthorID {
			continue
		}
		err := service.notifier.Notify(context, participantID, "message.received", "New direct message", channel.ID)
		if err != nil {
			service.logger.Error("chat_notification_failed",
				slog.String("recipient_id", participantID),
				slog.String("channel_id", channel.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

/*
EditMessage rewrites a message's content. Authors only.

Parameters:
  - context: context.Context
  - userID: string
  - messageID: string
  - content: string

Returns:
  - *Message: Updated entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) EditMessage(context context.Context, userID, messageID, content string) (*Message, error) {
	message, err := service.chatRepository.FindMessageByID(context, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := service.requireChannelRead(context, userID, message.ChannelID); err != nil {
		return nil, err
	}
	if message.AuthorID != userID {
		return nil, apperr.Forbidden("Only the author may edit this message")
	}

	now := time.Now()
	message.Content = content
	message.EditedAt = &now

	if err := service.chatRepository.UpdateMessage(context, message); err != nil {
		return nil, err
	}

	service.publish(context, pubsub.KindMessageUpdated, message)
	return message, nil
}

/*
RemoveMessage deletes a message. Allowed for the author; on planet channels
also for moderators (FullWrite).

Parameters:
  - context: context.Context
  - userID: string
  - messageID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) RemoveMessage(context context.Context, userID, messageID string) error {
	message, err := service.chatRepository.FindMessageByID(context, messageID)
	if err != nil {
		return err
	}
	if _, err := service.requireChannelRead(context, userID, message.ChannelID); err != nil {
		return err
	}

	if message.AuthorID != userID {
		if message.PlanetID == "" {
			return apperr.Forbidden("Only the author may remove this message")
		}
		allowed, err := service.engine.FullWriteByID(context, userID, message.PlanetID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperr.Forbidden("Only the author or a moderator may remove this message")
		}
	}

	if err := service.chatRepository.DeleteMessage(context, messageID); err != nil {
		return err
	}

	service.publish(context, pubsub.KindMessageRemoved, message)
	return nil
}

// # Reactions

/*
ToggleMessageReaction flips the caller's emoji reaction on a message.
Requires posting rights on the message's channel.

Description: The sole-reactor case falls out of the store contract: removing
the last reaction for an emoji deletes the row, so the aggregate never shows
an empty entry.

Parameters:
  - context: context.Context
  - userID: string
  - messageID: string
  - emoji: string

Returns:
  - bool: true when the reaction now exists
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) ToggleMessageReaction(context context.Context, userID, messageID, emoji string) (bool, error) {
	message, err := service.chatRepository.FindMessageByID(context, messageID)
	if err != nil {
		return false, err
	}
	if _, err := service.requireChannelWrite(context, userID, message.ChannelID); err != nil {
		return false, err
	}
	return service.chatRepository.ToggleReaction(context, messageID, userID, emoji)
}

/*
ListMessageReactions returns the per-emoji totals for a message, gated by
channel visibility.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - messageID: string

Returns:
  - []ReactionCount: Aggregated counts, sorted by emoji
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) ListMessageReactions(context context.Context, userID, messageID string) ([]ReactionCount, error) {
	message, err := service.chatRepository.FindMessageByID(context, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := service.requireChannelRead(context, userID, message.ChannelID); err != nil {
		return nil, err
	}
	return service.chatRepository.ListReactions(context, messageID)
}

// # Subscription Authorization

/*
CanFollowChannel reports whether userID may receive live events for a
channel. It is the per-event predicate behind the WebSocket stream and runs
against fresh state on every delivery.

Parameters:
  - context: context.Context
  - userID: string
  - channelID: string

Returns:
  - bool: Whether delivery is allowed
*/
func (service *Service) CanFollowChannel(context context.Context, userID, channelID string) bool {
	_, err := service.requireChannelRead(context, userID, channelID)
	return err == nil
}

// # Gate Helpers

// requireChannelRead loads the channel and enforces visibility: Read tier
// for planet channels, participation for direct channels.
func (service *Service) requireChannelRead(context context.Context, userID, channelID string) (*Channel, error) {
	channel, err := service.chatRepository.FindChannelByID(context, channelID)
	if err != nil {
		return nil, err
	}

	if channel.Kind == ChannelDirect {
		if userID == "" || !channel.HasParticipant(userID) {
			return nil, apperr.NotFound("Channel")
		}
		return channel, nil
	}

	if err := access.RequireRead(context, service.engine, userID, channel.PlanetID); err != nil {
		return nil, apperr.NotFound("Channel")
	}
	return channel, nil
}

// requireChannelWrite loads the channel and enforces posting rights:
// PublicWrite tier for planet channels, participation for direct channels.
func (service *Service) requireChannelWrite(context context.Context, userID, channelID string) (*Channel, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	channel, err := service.chatRepository.FindChannelByID(context, channelID)
	if err != nil {
		return nil, err
	}

	if channel.Kind == ChannelDirect {
		if !channel.HasParticipant(userID) {
			return nil, apperr.NotFound("Channel")
		}
		return channel, nil
	}

	if err := access.RequirePublicWrite(context, service.engine, userID, channel.PlanetID); err != nil {
		return nil, err
	}
	return channel, nil
}

// publish fans a message lifecycle event out to the broker.
func (service *Service) publish(context context.Context, kind pubsub.Kind, message *Message) {
	entity, err := pubsub.MarshalEntity(message)
	if err != nil {
		service.logger.Error("chat_event_marshal_failed", slog.String("error", err.Error()))
		return
	}

	event := pubsub.Event{
		Kind:      kind,
		PlanetID:  message.PlanetID,
		ChannelID: message.ChannelID,
		Entity:    entity,
	}
	if err := pubsub.PublishEvent(context, service.broker, pubsub.TopicMessages, event); err != nil {
		service.logger.Error("chat_event_publish_failed",
			slog.String("kind", string(kind)),
			slog.String("channel_id", message.ChannelID),
			slog.String("error", err.Error()),
		)
	}
}
