// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/loader"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/internal/platform/validate"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// Handler implements chat component HTTP endpoints.
//
// The live WebSocket stream is mounted separately by the API server; this
// handler covers the request/response surface (history, channel management,
// message mutation).
type Handler struct {
	chatService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{chatService: service}
}

// Routes returns a [chi.Router] configured with chat-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{id}/channels", handler.listChannels)
	router.Get("/channels/{channelId}/messages", handler.listMessages)
	router.Get("/messages/{messageId}/reactions", handler.listMessageReactions)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/{id}/channels", handler.createChannel)
		r.Delete("/channels/{channelId}", handler.deleteChannel)

		r.Post("/direct", handler.openDirectChannel)
		r.Get("/direct", handler.listDirectChannels)

		r.Post("/channels/{channelId}/messages", handler.sendMessage)
		r.Put("/messages/{messageId}", handler.editMessage)
		r.Delete("/messages/{messageId}", handler.removeMessage)
		r.Post("/messages/{messageId}/reactions", handler.toggleMessageReaction)
	})

	return router
}

// # Request Payloads

type channelRequest struct {
	Name string `json:"name"`
}

type directChannelRequest struct {
	UserIDs []string `json:"user_ids"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// # Channel Endpoints

/*
ListChannels returns the chat's channels.

GET /api/v1/chats/{id}/channels

Response:
  - 200: []Channel
  - 404: ErrNotFound: Chat missing or planet not visible
*/
func (handler *Handler) listChannels(writer http.ResponseWriter, request *http.Request) {
	channels, err := handler.chatService.ListChannels(request.Context(), callerID(request), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, channels)
}

/*
CreateChannel adds a channel to the chat.

POST /api/v1/chats/{id}/channels

Request:
  - Body: channelRequest (Name)

Response:
  - 201: Channel: Created channel
  - 403: ErrForbidden: Caller lacks FullWrite
*/
func (handler *Handler) createChannel(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input channelRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, constants.MaxPlanetNameLen)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	channel, err := handler.chatService.CreateChannel(request.Context(), userID, requestutil.ID(request, "id"), input.Name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, channel)
}

/*
DeleteChannel removes a planet channel.

DELETE /api/v1/chats/channels/{channelId}

Response:
  - 204: No Content
  - 403: ErrForbidden: Caller lacks FullWrite
*/
func (handler *Handler) deleteChannel(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.chatService.DeleteChannel(request.Context(), userID, requestutil.ID(request, "channelId")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Direct Channel Endpoints

/*
OpenDirectChannel finds or creates the direct channel for a participant set.

POST /api/v1/chats/direct

Request:
  - Body: directChannelRequest (UserIDs)

Response:
  - 200: Channel: The direct channel (existing or new)
*/
func (handler *Handler) openDirectChannel(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input directChannelRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	channel, err := handler.chatService.OpenDirectChannel(request.Context(), userID, input.UserIDs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, channel)
}

/*
ListDirectChannels returns the caller's direct channels.

GET /api/v1/chats/direct
*/
func (handler *Handler) listDirectChannels(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	channels, err := handler.chatService.ListDirectChannels(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, channels)
}

// # Message Endpoints

// messageView is a message with its author resolved through the per-request
// loader, so a hundred messages from three people cost one account lookup.
type messageView struct {
	*Message
	Author *loader.User `json:"author,omitempty"`
}

/*
ListMessages returns a page of a channel's history.

GET /api/v1/chats/channels/{channelId}/messages?page=&limit=

Response:
  - 200: []messageView with pagination metadata, newest first
  - 404: ErrNotFound: Channel missing or not visible
*/
func (handler *Handler) listMessages(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	messages, total, err := handler.chatService.ListMessages(
		request.Context(),
		callerID(request),
		requestutil.ID(request, "channelId"),
		params,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	views, err := attachAuthors(request, messages)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, views, pagination.NewMeta(params.Page, params.Limit, total))
}

// attachAuthors resolves each message's author through the request bundle.
// Outside the loader middleware (or for deleted accounts) the author field is
// simply absent.
func attachAuthors(request *http.Request, messages []*Message) ([]messageView, error) {
	views := make([]messageView, len(messages))
	for i, message := range messages {
		views[i] = messageView{Message: message}
	}

	bundle := loader.FromRequest(request)
	if bundle == nil {
		return views, nil
	}

	authorIDs := make([]string, len(messages))
	for i, message := range messages {
		authorIDs[i] = message.AuthorID
	}

	authors, err := bundle.Users.LoadMany(request.Context(), authorIDs)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if authors[i].Found {
			author := authors[i].Value
			views[i].Author = &author
		}
	}
	return views, nil
}

/*
SendMessage appends a message to a channel.

POST /api/v1/chats/channels/{channelId}/messages

Request:
  - Body: messageRequest (Content)

Response:
  - 201: Message: Created message
  - 403: ErrForbidden: Caller lacks PublicWrite
*/
func (handler *Handler) sendMessage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	content, err := decodeMessage(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.chatService.SendMessage(request.Context(), userID, requestutil.ID(request, "channelId"), content)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, message)
}

/*
EditMessage rewrites a message's content.

PUT /api/v1/chats/messages/{messageId}

Request:
  - Body: messageRequest (Content)

Response:
  - 200: Message: Updated message
  - 403: ErrForbidden: Caller is not the author
*/
func (handler *Handler) editMessage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	content, err := decodeMessage(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.chatService.EditMessage(request.Context(), userID, requestutil.ID(request, "messageId"), content)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, message)
}

/*
RemoveMessage deletes a message.

DELETE /api/v1/chats/messages/{messageId}

Response:
  - 204: No Content
  - 403: ErrForbidden: Neither author nor moderator
*/
func (handler *Handler) removeMessage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.chatService.RemoveMessage(request.Context(), userID, requestutil.ID(request, "messageId")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Reaction Endpoints

/*
ToggleMessageReaction flips the caller's emoji reaction on a message.

POST /api/v1/chats/messages/{messageId}/reactions

Request:
  - Body: reactionRequest (Emoji)

Response:
  - 200: {reacted}: Whether the reaction now exists
*/
func (handler *Handler) toggleMessageReaction(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input reactionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if input.Emoji == "" {
		respond.Error(writer, request, validate.RequiredError(FieldEmoji, "is required"))
		return
	}

	reacted, err := handler.chatService.ToggleMessageReaction(request.Context(), userID, requestutil.ID(request, "messageId"), input.Emoji)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"reacted": reacted})
}

/*
ListMessageReactions returns the per-emoji totals for a message.

GET /api/v1/chats/messages/{messageId}/reactions

Response:
  - 200: []ReactionCount
  - 404: ErrNotFound: Message or channel not visible
*/
func (handler *Handler) listMessageReactions(writer http.ResponseWriter, request *http.Request) {
	counts, err := handler.chatService.ListMessageReactions(request.Context(), callerID(request), requestutil.ID(request, "messageId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, counts)
}

// decodeMessage extracts and validates a message body.
func decodeMessage(request *http.Request) (string, error) {
	var input messageRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		return "", validate.ErrInvalidJSON
	}

	v := &validate.Validator{}
	v.Required(FieldContent, input.Content).MaxLen(FieldContent, input.Content, constants.MaxMessageLen)
	if err := v.Err(); err != nil {
		return "", err
	}
	return input.Content, nil
}

// callerID extracts the authenticated user id, or "" for anonymous callers.
func callerID(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}
