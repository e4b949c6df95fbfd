// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package forum

import (
	"context"

	"github.com/starbasehq/starbase/internal/component"
	"github.com/starbasehq/starbase/internal/component/access"
	"github.com/starbasehq/starbase/internal/perm"
	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/pkg/pagination"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// Service implements forum component use cases and the variant lifecycle.
type Service struct {
	forumRepository ForumRepository
	engine          *perm.Engine
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(forumRepo ForumRepository, engine *perm.Engine) *Service {
	return &Service{forumRepository: forumRepo, engine: engine}
}

// # Variant Lifecycle

// Kind identifies this variant in the component registry.
func (service *Service) Kind() component.Kind { return component.KindForum }

/*
Create provisions an empty forum for a freshly attached component.

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
	forum := &Forum{
		ID:       uuid.New(),
		PlanetID: planetID,
		Name:     name,
	}
	if err := service.forumRepository.CreateForum(context, forum); err != nil {
		return "", err
	}
	return forum.ID, nil
}

/*
Delete cascades the forum with every post, reply, and reaction when the
component is detached.

Parameters:
  - context: context.Context
  - componentID: string

Returns:
  - error: Persistence failures
*/
func (service *Service) Delete(context context.Context, componentID string) error {
	return service.forumRepository.DeleteForum(context, componentID)
}

// # Read Path

/*
ListPosts returns a page of a forum's posts, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - forumID: string
  - params: pagination.Params
  - tag: string (empty for no filter)

Returns:
  - []*Post: Page of posts, stickied first
  - int: Total matching count
  - error: apperr NOT_FOUND when the forum or planet is not visible
*/
func (service *Service) ListPosts(context context.Context, userID, forumID string, params pagination.Params, tag string) ([]*Post, int, error) {
	forum, err := service.forumRepository.FindForumByID(context, forumID)
	if err != nil {
		return nil, 0, err
	}
	if err := access.RequireRead(context, service.engine, userID, forum.PlanetID); err != nil {
		return nil, 0, err
	}
	return service.forumRepository.ListPosts(context, forumID, params, tag)
}

/*
GetPost returns a post with its replies, gated by the Read tier.

Parameters:
  - context: context.Context
  - userID: string (empty for anonymous)
  - postID: string

Returns:
  - *Post: The post with reaction aggregates
  - []*Reply: Replies in thread order
  - error: apperr NOT_FOUND when the post or planet is not visible
*/
func (service *Service) GetPost(context context.Context, userID, postID string) (*Post, []*Reply, error) {
	post, err := service.forumRepository.FindPostByID(context, postID)
	if err != nil {
		return nil, nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, post.PlanetID); err != nil {
		return nil, nil, err
	}

	replies, err := service.forumRepository.ListReplies(context, postID)
	if err != nil {
		return nil, nil, err
	}
	return post, replies, nil
}

// # Posting

// PostInput holds the data for creating or editing a post.
type PostInput struct {
	Title string
	Body  string
	Tags  []string
}

/*
CreatePost opens a new thread. Requires the PublicWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - forumID: string
  - input: PostInput

Returns:
  - *Post: Created entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) CreatePost(context context.Context, userID, forumID string, input PostInput) (*Post, error) {
	forum, err := service.forumRepository.FindForumByID(context, forumID)
	if err != nil {
		return nil, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, forum.PlanetID); err != nil {
		return nil, err
	}

	post := &Post{
		ID:       uuid.New(),
		ForumID:  forumID,
		PlanetID: forum.PlanetID,
		AuthorID: userID,
		Title:    input.Title,
		Body:     input.Body,
		Tags:     input.Tags,
	}
	if err := service.forumRepository.CreatePost(context, post); err != nil {
		return nil, err
	}
	return post, nil
}

/*
UpdatePost edits a post. The author may edit their own unlocked post;
moderators (FullWrite) may edit any post, locked or not.

Parameters:
  - context: context.Context
  - userID: string
  - postID: string
  - input: PostInput

Returns:
  - *Post: Updated entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) UpdatePost(context context.Context, userID, postID string, input PostInput) (*Post, error) {
	post, err := service.requireAuthorOrModerator(context, userID, postID, "edit")
	if err != nil {
		return nil, err
	}

	post.Title = input.Title
	post.Body = input.Body
	post.Tags = input.Tags

	if err := service.forumRepository.UpdatePost(context, post); err != nil {
		return nil, err
	}
	return post, nil
}

/*
DeletePost removes a post. Allowed for the author and for moderators.

Parameters:
  - context: context.Context
  - userID: string
  - postID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DeletePost(context context.Context, userID, postID string) error {
	if _, err := service.requireAuthorOrModerator(context, userID, postID, "delete"); err != nil {
		return err
	}
	return service.forumRepository.DeletePost(context, postID)
}

// # Replies

/*
CreateReply answers a post. Requires the PublicWrite tier; locked posts
refuse new replies from everyone below FullWrite.

Parameters:
  - context: context.Context
  - userID: string
  - postID: string
  - body: string

Returns:
  - *Reply: Created entity
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) CreateReply(context context.Context, userID, postID, body string) (*Reply, error) {
	post, err := service.forumRepository.FindPostByID(context, postID)
	if err != nil {
		return nil, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, post.PlanetID); err != nil {
		return nil, err
	}

	if post.Locked {
		allowed, err := service.engine.FullWriteByID(context, userID, post.PlanetID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperr.Forbidden("This post is locked")
		}
	}

	reply := &Reply{
		ID:       uuid.New(),
		PostID:   postID,
		PlanetID: post.PlanetID,
		AuthorID: userID,
		Body:     body,
	}
	if err := service.forumRepository.CreateReply(context, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

/*
DeleteReply removes a reply. Allowed for the author and for moderators.

Parameters:
  - context: context.Context
  - userID: string
  - replyID: string

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) DeleteReply(context context.Context, userID, replyID string) error {
	reply, err := service.forumRepository.FindReplyByID(context, replyID)
	if err != nil {
		return err
	}
	if err := access.RequireRead(context, service.engine, userID, reply.PlanetID); err != nil {
		return err
	}

	if reply.AuthorID != userID {
		allowed, err := service.engine.FullWriteByID(context, userID, reply.PlanetID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperr.Forbidden("Only the author or a moderator may delete this reply")
		}
	}
	return service.forumRepository.DeleteReply(context, replyID)
}

// # Moderation

/*
SetStickied pins or unpins a post. Requires the FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - postID: string
  - stickied: bool

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) SetStickied(context context.Context, userID, postID string, stickied bool) error {
	post, err := service.forumRepository.FindPostByID(context, postID)
	if err != nil {
		return err
	}
	if err := access.RequireFullWrite(context, service.engine, userID, post.PlanetID); err != nil {
		return err
	}
	return service.forumRepository.SetStickied(context, postID, stickied)
}

/*
SetLocked locks or unlocks a post. Requires the FullWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - postID: string
  - locked: bool

Returns:
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) SetLocked(context context.Context, userID, postID string, locked bool) error {
	post, err := service.forumRepository.FindPostByID(context, postID)
	if err != nil {
		return err
	}
	if err := access.RequireFullWrite(context, service.engine, userID, post.PlanetID); err != nil {
		return err
	}
	return service.forumRepository.SetLocked(context, postID, locked)
}

// # Reactions

/*
TogglePostReaction flips the caller's emoji reaction on a post. Requires the
PublicWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - postID: string
  - emoji: string

Returns:
  - bool: true when the reaction now exists
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) TogglePostReaction(context context.Context, userID, postID, emoji string) (bool, error) {
	post, err := service.forumRepository.FindPostByID(context, postID)
	if err != nil {
		return false, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, post.PlanetID); err != nil {
		return false, err
	}
	return service.forumRepository.ToggleReaction(context, postID, userID, emoji)
}

/*
ToggleReplyReaction flips the caller's emoji reaction on a reply. Requires
the PublicWrite tier.

Parameters:
  - context: context.Context
  - userID: string
  - replyID: string
  - emoji: string

Returns:
  - bool: true when the reaction now exists
  - error: apperr NOT_FOUND, FORBIDDEN, or storage errors
*/
func (service *Service) ToggleReplyReaction(context context.Context, userID, replyID, emoji string) (bool, error) {
	reply, err := service.forumRepository.FindReplyByID(context, replyID)
	if err != nil {
		return false, err
	}
	if err := access.RequirePublicWrite(context, service.engine, userID, reply.PlanetID); err != nil {
		return false, err
	}
	return service.forumRepository.ToggleReaction(context, replyID, userID, emoji)
}

// # Gate Helpers

// requireAuthorOrModerator loads a post and verifies the caller is its
// author (on an unlocked post) or holds FullWrite.
func (service *Service) requireAuthorOrModerator(context context.Context, userID, postID, action string) (*Post, error) {
	post, err := service.forumRepository.FindPostByID(context, postID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireRead(context, service.engine, userID, post.PlanetID); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	if post.AuthorID == userID && !post.Locked {
		// Authors keep control of their own unlocked posts. A globally
		// banned author is still refused by the PublicWrite check below.
		allowed, err := service.engine.PublicWriteByID(context, userID, post.PlanetID)
		if err != nil {
			return nil, err
		}
		if allowed {
			return post, nil
		}
	}

	allowed, err := service.engine.FullWriteByID(context, userID, post.PlanetID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden("Only the author or a moderator may " + action + " this post")
	}
	return post, nil
}
