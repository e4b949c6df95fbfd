// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// PostgreSQL implementation of the forum repository.
//
// Cascades (forum -> post -> reply) are enforced by foreign keys, so every
// delete here is one statement. Reactions live in a single polymorphic
// components.reaction table keyed by (targetid, userid, emoji), shared with
// replies and chat messages; it carries no foreign key, so rows for deleted
// targets are simply unreachable.
package forum

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/platform/dberr"
	"github.com/starbasehq/starbase/pkg/pagination"
)

// PostgresForumRepository implements the ForumRepository interface using pgx.
type PostgresForumRepository struct {
	pool *pgxpool.Pool
}

// NewForumRepository creates a new PostgreSQL implementation of the ForumRepository.
func NewForumRepository(pool *pgxpool.Pool) *PostgresForumRepository {
	return &PostgresForumRepository{pool: pool}
}

// # Forum Root

func (repository *PostgresForumRepository) CreateForum(context context.Context, forum *Forum) error {
	const query = `
		INSERT INTO components.forum (id, planetid, name, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now()
	forum.CreatedAt = now
	forum.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		forum.ID, forum.PlanetID, forum.Name, forum.CreatedAt, forum.UpdatedAt)
	return dberr.Wrap(err)
}

func (repository *PostgresForumRepository) FindForumByID(context context.Context, id string) (*Forum, error) {
	const query = `
		SELECT id, planetid, name, createdat, updatedat
		FROM components.forum
		WHERE id = $1`

	forum := &Forum{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&forum.ID, &forum.PlanetID, &forum.Name, &forum.CreatedAt, &forum.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Forum")
		}
		return nil, dberr.Wrap(err)
	}
	return forum, nil
}

func (repository *PostgresForumRepository) DeleteForum(context context.Context, id string) error {
	const query = "DELETE FROM components.forum WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

// # Posts

func (repository *PostgresForumRepository) CreatePost(context context.Context, post *Post) error {
	const query = `
		INSERT INTO components.forumpost (
			id, forumid, planetid, authorid, title, body, tags,
			stickied, locked, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}

	_, err := repository.pool.Exec(context, query,
		post.ID,
		post.ForumID,
		post.PlanetID,
		post.AuthorID,
		post.Title,
		post.Body,
		post.Tags,
		post.Stickied,
		post.Locked,
		post.CreatedAt,
		post.UpdatedAt,
	)
	return dberr.Wrap(err)
}

/*
FindPostByID retrieves a post including its reply count and reaction
aggregates.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Post: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresForumRepository) FindPostByID(context context.Context, id string) (*Post, error) {
	const query = `
		SELECT p.id, p.forumid, p.planetid, p.authorid, p.title, p.body, p.tags,
		       p.stickied, p.locked, p.createdat, p.updatedat,
		       (SELECT COUNT(*) FROM components.forumreply r WHERE r.postid = p.id)
		FROM components.forumpost p
		WHERE p.id = $1`

	post := &Post{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&post.ID,
		&post.ForumID,
		&post.PlanetID,
		&post.AuthorID,
		&post.Title,
		&post.Body,
		&post.Tags,
		&post.Stickied,
		&post.Locked,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.ReplyCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Post")
		}
		return nil, dberr.Wrap(err)
	}

	post.Reactions, err = repository.listReactions(context, id)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (repository *PostgresForumRepository) FindManyPosts(context context.Context, ids []string) (map[string]*Post, error) {
	const query = `
		SELECT p.id, p.forumid, p.planetid, p.authorid, p.title, p.body, p.tags,
		       p.stickied, p.locked, p.createdat, p.updatedat,
		       (SELECT COUNT(*) FROM components.forumreply r WHERE r.postid = p.id)
		FROM components.forumpost p
		WHERE p.id = ANY($1)`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	keyed := make(map[string]*Post, len(ids))
	for rows.Next() {
		post := &Post{}
		err := rows.Scan(
			&post.ID,
			&post.ForumID,
			&post.PlanetID,
			&post.AuthorID,
			&post.Title,
			&post.Body,
			&post.Tags,
			&post.Stickied,
			&post.Locked,
			&post.CreatedAt,
			&post.UpdatedAt,
			&post.ReplyCount,
		)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		keyed[post.ID] = post
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return keyed, nil
}

/*
ListPosts retrieves a page of posts, stickied first, newest next.

Parameters:
  - context: context.Context
  - forumID: string
  - params: pagination.Params
  - tag: string (empty for no filter)

Returns:
  - []*Post: Page of posts
  - int: Total matching count
  - error: Execution errors
*/
func (repository *PostgresForumRepository) ListPosts(context context.Context, forumID string, params pagination.Params, tag string) ([]*Post, int, error) {
	const countQuery = `
		SELECT COUNT(*)
		FROM components.forumpost
		WHERE forumid = $1 AND ($2 = '' OR $2 = ANY(tags))`
	const pageQuery = `
		SELECT p.id, p.forumid, p.planetid, p.authorid, p.title, p.body, p.tags,
		       p.stickied, p.locked, p.createdat, p.updatedat,
		       (SELECT COUNT(*) FROM components.forumreply r WHERE r.postid = p.id)
		FROM components.forumpost p
		WHERE p.forumid = $1 AND ($2 = '' OR $2 = ANY(p.tags))
		ORDER BY p.stickied DESC, p.createdat DESC
		LIMIT $3 OFFSET $4`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, forumID, tag).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err)
	}

	rows, err := repository.pool.Query(context, pageQuery, forumID, tag, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	defer rows.Close()

	posts := make([]*Post, 0, params.Limit)
	for rows.Next() {
		post := &Post{}
		err := rows.Scan(
			&post.ID,
			&post.ForumID,
			&post.PlanetID,
			&post.AuthorID,
			&post.Title,
			&post.Body,
			&post.Tags,
			&post.Stickied,
			&post.Locked,
			&post.CreatedAt,
			&post.UpdatedAt,
			&post.ReplyCount,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	return posts, total, nil
}

func (repository *PostgresForumRepository) UpdatePost(context context.Context, post *Post) error {
	const query = `
		UPDATE components.forumpost
		SET title = $2, body = $3, tags = $4, updatedat = $5
		WHERE id = $1`

	post.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query,
		post.ID, post.Title, post.Body, post.Tags, post.UpdatedAt)
	return dberr.Wrap(err)
}

func (repository *PostgresForumRepository) DeletePost(context context.Context, id string) error {
	const query = "DELETE FROM components.forumpost WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

func (repository *PostgresForumRepository) SetStickied(context context.Context, postID string, stickied bool) error {
	const query = "UPDATE components.forumpost SET stickied = $2, updatedat = $3 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, postID, stickied, time.Now())
	return dberr.Wrap(err)
}

func (repository *PostgresForumRepository) SetLocked(context context.Context, postID string, locked bool) error {
	const query = "UPDATE components.forumpost SET locked = $2, updatedat = $3 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, postID, locked, time.Now())
	return dberr.Wrap(err)
}

// # Replies

func (repository *PostgresForumRepository) CreateReply(context context.Context, reply *Reply) error {
	const query = `
		INSERT INTO components.forumreply (id, postid, planetid, authorid, body, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	reply.CreatedAt = now
	reply.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		reply.ID,
		reply.PostID,
		reply.PlanetID,
		reply.AuthorID,
		reply.Body,
		reply.CreatedAt,
		reply.UpdatedAt,
	)
	return dberr.Wrap(err)
}

func (repository *PostgresForumRepository) FindReplyByID(context context.Context, id string) (*Reply, error) {
	const query = `
		SELECT id, postid, planetid, authorid, body, createdat, updatedat
		FROM components.forumreply
		WHERE id = $1`

	reply := &Reply{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&reply.ID,
		&reply.PostID,
		&reply.PlanetID,
		&reply.AuthorID,
		&reply.Body,
		&reply.CreatedAt,
		&reply.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Reply")
		}
		return nil, dberr.Wrap(err)
	}
	return reply, nil
}

/*
ListReplies retrieves all replies of a post with reaction aggregates, oldest
first.

Parameters:
  - context: context.Context
  - postID: string

Returns:
  - []*Reply: Replies in thread order
  - error: Execution errors
*/
func (repository *PostgresForumRepository) ListReplies(context context.Context, postID string) ([]*Reply, error) {
	const query = `
		SELECT id, postid, planetid, authorid, body, createdat, updatedat
		FROM components.forumreply
		WHERE postid = $1
		ORDER BY createdat ASC`

	rows, err := repository.pool.Query(context, query, postID)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	var replies []*Reply
	for rows.Next() {
		reply := &Reply{}
		err := rows.Scan(
			&reply.ID,
			&reply.PostID,
			&reply.PlanetID,
			&reply.AuthorID,
			&reply.Body,
			&reply.CreatedAt,
			&reply.UpdatedAt,
		)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}

	for _, reply := range replies {
		reply.Reactions, err = repository.listReactions(context, reply.ID)
		if err != nil {
			return nil, err
		}
	}
	return replies, nil
}

func (repository *PostgresForumRepository) DeleteReply(context context.Context, id string) error {
	const query = "DELETE FROM components.forumreply WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

// # Reactions

/*
ToggleReaction flips one user's emoji reaction on a target.

Description: The insert is ON CONFLICT DO NOTHING against the primary key
(targetid, userid, emoji). Zero affected rows means the reaction already
existed, so it is deleted instead. Both branches are single atomic
statements; losing a race simply lands on the other branch.

Parameters:
  - context: context.Context
  - targetID: string
  - userID: string
  - emoji: string

Returns:
  - bool: true when the reaction now exists
  - error: Execution errors
*/
func (repository *PostgresForumRepository) ToggleReaction(context context.Context, targetID, userID, emoji string) (bool, error) {
	const insertQuery = `
		INSERT INTO components.reaction (targetid, userid, emoji, createdat)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (targetid, userid, emoji) DO NOTHING`
	const deleteQuery = `
		DELETE FROM components.reaction
		WHERE targetid = $1 AND userid = $2 AND emoji = $3`

	tag, err := repository.pool.Exec(context, insertQuery, targetID, userID, emoji, time.Now())
	if err != nil {
		return false, dberr.Wrap(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := repository.pool.Exec(context, deleteQuery, targetID, userID, emoji); err != nil {
		return false, dberr.Wrap(err)
	}
	return false, nil
}

// listReactions aggregates reaction rows for one target.
func (repository *PostgresForumRepository) listReactions(context context.Context, targetID string) ([]ReactionCount, error) {
	const query = `
		SELECT emoji, COUNT(*)
		FROM components.reaction
		WHERE targetid = $1
		GROUP BY emoji
		ORDER BY emoji ASC`

	rows, err := repository.pool.Query(context, query, targetID)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	var counts []ReactionCount
	for rows.Next() {
		var count ReactionCount
		if err := rows.Scan(&count.Emoji, &count.Count); err != nil {
			return nil, dberr.Wrap(err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return counts, nil
}
