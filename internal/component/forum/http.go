// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package forum

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	requestutil "github.com/starbasehq/starbase/internal/platform/request"
	"github.com/starbasehq/starbase/internal/platform/respond"
	"github.com/starbasehq/starbase/internal/platform/validate"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// Handler implements forum component HTTP endpoints.
type Handler struct {
	forumService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{forumService: service}
}

// Routes returns a [chi.Router] configured with forum-specific routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{id}/posts", handler.listPosts)
	router.Get("/posts/{postId}", handler.getPost)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/{id}/posts", handler.createPost)
		r.Put("/posts/{postId}", handler.updatePost)
		r.Delete("/posts/{postId}", handler.deletePost)

		r.Put("/posts/{postId}/sticky", handler.setStickied(true))
		r.Delete("/posts/{postId}/sticky", handler.setStickied(false))
		r.Put("/posts/{postId}/lock", handler.setLocked(true))
		r.Delete("/posts/{postId}/lock", handler.setLocked(false))

		r.Post("/posts/{postId}/replies", handler.createReply)
		r.Delete("/replies/{replyId}", handler.deleteReply)

		r.Post("/posts/{postId}/reactions", handler.togglePostReaction)
		r.Post("/replies/{replyId}/reactions", handler.toggleReplyReaction)
	})

	return router
}

// # Request Payloads

type postRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

type replyRequest struct {
	Body string `json:"body"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

// validatePostRequest applies the shared title/body/tag bounds.
func validatePostRequest(input postRequest) error {
	v := &validate.Validator{}
	v.Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, constants.MaxPlanetNameLen).
		Required(FieldBody, input.Body).
		MaxLen(FieldBody, input.Body, constants.MaxPostLen)

	for _, tag := range input.Tags {
		v.Required(FieldTags, tag).MaxLen(FieldTags, tag, constants.MaxUsernameLen)
	}
	return v.Err()
}

// # Read Endpoints

/*
ListPosts returns a page of a forum's posts.

GET /api/v1/forums/{id}/posts?page=&limit=&tag=

Response:
  - 200: []Post with pagination metadata
  - 404: ErrNotFound: Forum missing or planet not visible
*/
func (handler *Handler) listPosts(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	tag := request.URL.Query().Get("tag")

	posts, total, err := handler.forumService.ListPosts(
		request.Context(),
		callerID(request),
		requestutil.ID(request, "id"),
		params,
		tag,
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, posts, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GetPost returns a post with its replies.

GET /api/v1/forums/posts/{postId}

Response:
  - 200: {post, replies}
  - 404: ErrNotFound
*/
func (handler *Handler) getPost(writer http.ResponseWriter, request *http.Request) {
	post, replies, err := handler.forumService.GetPost(request.Context(), callerID(request), requestutil.ID(request, "postId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"post":    post,
		"replies": replies,
	})
}

// # Posting Endpoints

/*
CreatePost opens a new thread.

POST /api/v1/forums/{id}/posts

Request:
  - Body: postRequest (Title, Body, Tags?)

Response:
  - 201: Post: Created post
  - 403: ErrForbidden: Caller lacks PublicWrite
*/
func (handler *Handler) createPost(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input postRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := validatePostRequest(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.forumService.CreatePost(request.Context(), userID, requestutil.ID(request, "id"), PostInput{
		Title: input.Title,
		Body:  input.Body,
		Tags:  input.Tags,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, post)
}

/*
UpdatePost edits a thread.

PUT /api/v1/forums/posts/{postId}

Request:
  - Body: postRequest (Title, Body, Tags?)

Response:
  - 200: Post: Updated post
  - 403: ErrForbidden: Neither author nor moderator
*/
func (handler *Handler) updatePost(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input postRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := validatePostRequest(input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	post, err := handler.forumService.UpdatePost(request.Context(), userID, requestutil.ID(request, "postId"), PostInput{
		Title: input.Title,
		Body:  input.Body,
		Tags:  input.Tags,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, post)
}

/*
DeletePost removes a thread.

DELETE /api/v1/forums/posts/{postId}

Response:
  - 204: No Content
  - 403: ErrForbidden: Neither author nor moderator
*/
func (handler *Handler) deletePost(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.forumService.DeletePost(request.Context(), userID, requestutil.ID(request, "postId")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Moderation Endpoints

// setStickied returns a handler pinning or unpinning a post.
//
// PUT|DELETE /api/v1/forums/posts/{postId}/sticky
func (handler *Handler) setStickied(stickied bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		userID, err := requestutil.RequiredUserID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		if err := handler.forumService.SetStickied(request.Context(), userID, requestutil.ID(request, "postId"), stickied); err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.NoContent(writer)
	}
}

// setLocked returns a handler locking or unlocking a post.
//
// PUT|DELETE /api/v1/forums/posts/{postId}/lock
func (handler *Handler) setLocked(locked bool) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		userID, err := requestutil.RequiredUserID(request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		if err := handler.forumService.SetLocked(request.Context(), userID, requestutil.ID(request, "postId"), locked); err != nil {
			respond.Error(writer, request, err)
			return
		}
		respond.NoContent(writer)
	}
}

// # Reply Endpoints

/*
CreateReply answers a post.

POST /api/v1/forums/posts/{postId}/replies

Request:
  - Body: replyRequest (Body)

Response:
  - 201: Reply: Created reply
  - 403: ErrForbidden: Post locked or caller lacks PublicWrite
*/
func (handler *Handler) createReply(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input replyRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldBody, input.Body).MaxLen(FieldBody, input.Body, constants.MaxPostLen)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	reply, err := handler.forumService.CreateReply(request.Context(), userID, requestutil.ID(request, "postId"), input.Body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, reply)
}

/*
DeleteReply removes a reply.

DELETE /api/v1/forums/replies/{replyId}

Response:
  - 204: No Content
  - 403: ErrForbidden: Neither author nor moderator
*/
func (handler *Handler) deleteReply(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.forumService.DeleteReply(request.Context(), userID, requestutil.ID(request, "replyId")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Reaction Endpoints

/*
TogglePostReaction flips the caller's emoji reaction on a post.

POST /api/v1/forums/posts/{postId}/reactions

Request:
  - Body: reactionRequest (Emoji)

Response:
  - 200: {reacted}: Whether the reaction now exists
*/
func (handler *Handler) togglePostReaction(writer http.ResponseWriter, request *http.Request) {
	handler.toggleReaction(writer, request, "postId", handler.forumService.TogglePostReaction)
}

/*
ToggleReplyReaction flips the caller's emoji reaction on a reply.

POST /api/v1/forums/replies/{replyId}/reactions
*/
func (handler *Handler) toggleReplyReaction(writer http.ResponseWriter, request *http.Request) {
	handler.toggleReaction(writer, request, "replyId", handler.forumService.ToggleReplyReaction)
}

// toggleReaction is the shared decode/validate/respond path for both targets.
func (handler *Handler) toggleReaction(
	writer http.ResponseWriter,
	request *http.Request,
	param string,
	toggle func(ctx context.Context, userID, targetID, emoji string) (bool, error),
) {
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

	reacted, err := toggle(request.Context(), userID, requestutil.ID(request, param), input.Emoji)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{"reacted": reacted})
}

// callerID extracts the authenticated user id, or "" for anonymous callers.
func callerID(request *http.Request) string {
	if claims := requestutil.Claims(request); claims != nil {
		return claims.UserID
	}
	return ""
}
