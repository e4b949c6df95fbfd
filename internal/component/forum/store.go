// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package forum

import (
	"context"

	"github.com/starbasehq/starbase/pkg/pagination"
)

// ForumRepository defines the data access contract for forums, posts,
// replies, and reactions.
type ForumRepository interface {

	/*
		CreateForum persists a new forum component root.

		Parameters:
		  - context: context.Context
		  - forum: *Forum

		Returns:
		  - error: Persistence failures
	*/
	CreateForum(context context.Context, forum *Forum) error

	/*
		FindForumByID returns the forum with the given component id.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Forum: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindForumByID(context context.Context, id string) (*Forum, error)

	/*
		DeleteForum removes the forum root; posts, replies, and reactions
		cascade.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteForum(context context.Context, id string) error

	/*
		CreatePost persists a new post.

		Parameters:
		  - context: context.Context
		  - post: *Post

		Returns:
		  - error: Persistence failures
	*/
	CreatePost(context context.Context, post *Post) error

	/*
		FindPostByID returns a post with its reaction aggregates.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Post: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindPostByID(context context.Context, id string) (*Post, error)

	/*
		FindManyPosts returns all posts matching the given ids, keyed by id.

		Description: Batch resolution for the per-request loader. Missing ids
		are absent from the map, never an error.

		Parameters:
		  - context: context.Context
		  - ids: []string

		Returns:
		  - map[string]*Post: Found entities keyed by id
		  - error: Retrieval failures
	*/
	FindManyPosts(context context.Context, ids []string) (map[string]*Post, error)

	/*
		ListPosts returns a page of a forum's posts, stickied first, newest
		next, optionally filtered by tag.

		Parameters:
		  - context: context.Context
		  - forumID: string
		  - params: pagination.Params
		  - tag: string (empty for no filter)

		Returns:
		  - []*Post: Page of posts (bodies included, reactions omitted)
		  - int: Total matching count
		  - error: Retrieval failures
	*/
	ListPosts(context context.Context, forumID string, params pagination.Params, tag string) ([]*Post, int, error)

	/*
		UpdatePost persists the post's title, body, and tags.

		Parameters:
		  - context: context.Context
		  - post: *Post

		Returns:
		  - error: Persistence failures
	*/
	UpdatePost(context context.Context, post *Post) error

	/*
		DeletePost removes a post with its replies and reactions.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeletePost(context context.Context, id string) error

	/*
		SetStickied toggles the stickied flag.

		Parameters:
		  - context: context.Context
		  - postID: string
		  - stickied: bool

		Returns:
		  - error: Persistence failures
	*/
	SetStickied(context context.Context, postID string, stickied bool) error

	/*
		SetLocked toggles the locked flag.

		Parameters:
		  - context: context.Context
		  - postID: string
		  - locked: bool

		Returns:
		  - error: Persistence failures
	*/
	SetLocked(context context.Context, postID string, locked bool) error

	/*
		CreateReply persists a new reply.

		Parameters:
		  - context: context.Context
		  - reply: *Reply

		Returns:
		  - error: Persistence failures
	*/
	CreateReply(context context.Context, reply *Reply) error

	/*
		FindReplyByID returns a single reply.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Reply: Hydrated entity
		  - error: apperr NOT_FOUND or retrieval failures
	*/
	FindReplyByID(context context.Context, id string) (*Reply, error)

	/*
		ListReplies returns all replies of a post, oldest first, with
		reaction aggregates.

		Parameters:
		  - context: context.Context
		  - postID: string

		Returns:
		  - []*Reply: Replies in thread order
		  - error: Retrieval failures
	*/
	ListReplies(context context.Context, postID string) ([]*Reply, error)

	/*
		DeleteReply removes a single reply and its reactions.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteReply(context context.Context, id string) error

	/*
		ToggleReaction flips one user's emoji reaction on a target (post or
		reply). Insert-if-absent, delete-if-present; each branch is a single
		atomic statement.

		Parameters:
		  - context: context.Context
		  - targetID: string
		  - userID: string
		  - emoji: string

		Returns:
		  - bool: true when the reaction now exists, false when it was removed
		  - error: Persistence failures
	*/
	ToggleReaction(context context.Context, targetID, userID, emoji string) (bool, error)
}
