// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

/*
Package forum implements the discussion component variant: a forum holds
posts, posts hold replies, and both carry emoji reactions.

Posting and reacting are drive-by content creation (PublicWrite). Moderation
(stickying, locking, removing other people's content) requires FullWrite;
authors may always edit and delete their own contributions unless the post
is locked.

# Reactions

A reaction is one row per (target, user, emoji). Toggling is insert-if-absent
or delete-if-present, so the "sole reactor un-reacts" case removes the row
entirely and concurrent toggles never corrupt a counter.
*/
package forum

import "time"

// Forum represents the forum component root.
type Forum struct {
	ID       string `json:"id"`
	PlanetID string `json:"planet_id"`
	Name     string `json:"name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Post represents a top-level forum thread.
type Post struct {
	ID       string `json:"id"`
	ForumID  string `json:"forum_id"`
	PlanetID string `json:"planet_id"`
	AuthorID string `json:"author_id"`

	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`

	// Stickied posts sort before the rest; Locked posts refuse new replies
	// and author edits.
	Stickied bool `json:"stickied"`
	Locked   bool `json:"locked"`

	ReplyCount int             `json:"reply_count"`
	Reactions  []ReactionCount `json:"reactions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reply represents a single response inside a post.
type Reply struct {
	ID       string `json:"id"`
	PostID   string `json:"post_id"`
	PlanetID string `json:"planet_id"`
	AuthorID string `json:"author_id"`

	Body string `json:"body"`

	Reactions []ReactionCount `json:"reactions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReactionCount aggregates one emoji's reactions on a target.
type ReactionCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// # Field Identifiers

const (
	FieldTitle = "title"
	FieldBody  = "body"
	FieldEmoji = "emoji"
	FieldTags  = "tags"
)
