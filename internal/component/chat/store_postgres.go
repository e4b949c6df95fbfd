// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// PostgreSQL implementation of the chat repository.
//
// Channel and message cascades run through foreign keys. Direct channels are
// rows with a NULL chatid and a sorted userids array; exact-set lookup
// compares the whole array.
package chat

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

// PostgresChatRepository implements the ChatRepository interface using pgx.
type PostgresChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new PostgreSQL implementation of the ChatRepository.
func NewChatRepository(pool *pgxpool.Pool) *PostgresChatRepository {
	return &PostgresChatRepository{pool: pool}
}

// # Chat Root

func (repository *PostgresChatRepository) CreateChat(context context.Context, chat *Chat) error {
	const query = `
		INSERT INTO components.chat (id, planetid, name, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		chat.ID, chat.PlanetID, chat.Name, chat.CreatedAt, chat.UpdatedAt)
	return dberr.Wrap(err)
}

func (repository *PostgresChatRepository) FindChatByID(context context.Context, id string) (*Chat, error) {
	const query = `
		SELECT id, planetid, name, createdat, updatedat
		FROM components.chat
		WHERE id = $1`

	chat := &Chat{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&chat.ID, &chat.PlanetID, &chat.Name, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Chat")
		}
		return nil, dberr.Wrap(err)
	}
	return chat, nil
}

func (repository *PostgresChatRepository) DeleteChat(context context.Context, id string) error {
	const query = "DELETE FROM components.chat WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

// # Channels

const channelColumns = `id, kind, name, chatid, planetid, userids, createdat`

// scanChannel hydrates a Channel from a row carrying [channelColumns].
// NULL chatid/planetid map onto empty strings through coalescing in SQL.
func scanChannel(row pgx.Row) (*Channel, error) {
	channel := &Channel{}
	err := row.Scan(
		&channel.ID,
		&channel.Kind,
		&channel.Name,
		&channel.ChatID,
		&channel.PlanetID,
		&channel.UserIDs,
		&channel.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (repository *PostgresChatRepository) CreateChannel(context context.Context, channel *Channel) error {
	const query = `
		INSERT INTO components.channel (id, kind, name, chatid, planetid, userids, createdat)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)`

	channel.CreatedAt = time.Now()
	if channel.UserIDs == nil {
		channel.UserIDs = []string{}
	}

	_, err := repository.pool.Exec(context, query,
		channel.ID,
		channel.Kind,
		channel.Name,
		channel.ChatID,
		channel.PlanetID,
		channel.UserIDs,
		channel.CreatedAt,
	)
	return dberr.Wrap(err)
}

func (repository *PostgresChatRepository) FindChannelByID(context context.Context, id string) (*Channel, error) {
	const query = `
		SELECT id, kind, name, COALESCE(chatid, ''), COALESCE(planetid, ''), userids, createdat
		FROM components.channel
		WHERE id = $1`

	channel, err := scanChannel(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Channel")
		}
		return nil, dberr.Wrap(err)
	}
	return channel, nil
}

func (repository *PostgresChatRepository) ListChannels(context context.Context, chatID string) ([]*Channel, error) {
	const query = `
		SELECT id, kind, name, COALESCE(chatid, ''), COALESCE(planetid, ''), userids, createdat
		FROM components.channel
		WHERE chatid = $1
		ORDER BY createdat ASC`

	return repository.queryChannels(context, query, chatID)
}

/*
FindDirectChannel returns the direct channel with exactly the given
participant set.

Description: userids is stored sorted, so array equality is an exact-set
match.

Parameters:
  - context: context.Context
  - userIDs: []string (sorted by the caller)

Returns:
  - *Channel: Hydrated entity
  - error: apperr NOT_FOUND or execution errors
*/
func (repository *PostgresChatRepository) FindDirectChannel(context context.Context, userIDs []string) (*Channel, error) {
	const query = `
		SELECT id, kind, name, COALESCE(chatid, ''), COALESCE(planetid, ''), userids, createdat
		FROM components.channel
		WHERE kind = 'direct' AND userids = $1`

	channel, err := scanChannel(repository.pool.QueryRow(context, query, userIDs))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Channel")
		}
		return nil, dberr.Wrap(err)
	}
	return channel, nil
}

func (repository *PostgresChatRepository) FindManyChannels(context context.Context, ids []string) (map[string]*Channel, error) {
	const query = `
		SELECT id, kind, name, COALESCE(chatid, ''), COALESCE(planetid, ''), userids, createdat
		FROM components.channel
		WHERE id = ANY($1)`

	channels, err := repository.queryChannels(context, query, ids)
	if err != nil {
		return nil, err
	}

	keyed := make(map[string]*Channel, len(channels))
	for _, channel := range channels {
		keyed[channel.ID] = channel
	}
	return keyed, nil
}

func (repository *PostgresChatRepository) ListDirectChannels(context context.Context, userID string) ([]*Channel, error) {
	const query = `
		SELECT id, kind, name, COALESCE(chatid, ''), COALESCE(planetid, ''), userids, createdat
		FROM components.channel
		WHERE kind = 'direct' AND $1 = ANY(userids)
		ORDER BY createdat DESC`

	return repository.queryChannels(context, query, userID)
}

func (repository *PostgresChatRepository) DeleteChannel(context context.Context, id string) error {
	const query = "DELETE FROM components.channel WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

// queryChannels runs a channel query and hydrates the result set.
func (repository *PostgresChatRepository) queryChannels(context context.Context, query string, args ...any) ([]*Channel, error) {
	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return channels, nil
}

// # Messages

func (repository *PostgresChatRepository) CreateMessage(context context.Context, message *Message) error {
	const query = `
		INSERT INTO components.message (id, channelid, authorid, planetid, content, editedat, createdat)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`

	message.CreatedAt = time.Now()

	_, err := repository.pool.Exec(context, query,
		message.ID,
		message.ChannelID,
		message.AuthorID,
		message.PlanetID,
		message.Content,
		message.EditedAt,
		message.CreatedAt,
	)
	return dberr.Wrap(err)
}

func (repository *PostgresChatRepository) FindMessageByID(context context.Context, id string) (*Message, error) {
	const query = `
		SELECT id, channelid, authorid, COALESCE(planetid, ''), content, editedat, createdat
		FROM components.message
		WHERE id = $1`

	message := &Message{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&message.ID,
		&message.ChannelID,
		&message.AuthorID,
		&message.PlanetID,
		&message.Content,
		&message.EditedAt,
		&message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Message")
		}
		return nil, dberr.Wrap(err)
	}
	return message, nil
}

func (repository *PostgresChatRepository) FindManyMessages(context context.Context, ids []string) (map[string]*Message, error) {
	const query = `
		SELECT id, channelid, authorid, COALESCE(planetid, ''), content, editedat, createdat
		FROM components.message
		WHERE id = ANY($1)`

	rows, err := repository.pool.Query(context, query, ids)
	if err != nil {
		return nil, dberr.Wrap(err)
	}
	defer rows.Close()

	keyed := make(map[string]*Message, len(ids))
	for rows.Next() {
		message := &Message{}
		err := rows.Scan(
			&message.ID,
			&message.ChannelID,
			&message.AuthorID,
			&message.PlanetID,
			&message.Content,
			&message.EditedAt,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, dberr.Wrap(err)
		}
		keyed[message.ID] = message
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err)
	}
	return keyed, nil
}

func (repository *PostgresChatRepository) ListMessages(context context.Context, channelID string, params pagination.Params) ([]*Message, int, error) {
	const countQuery = "SELECT COUNT(*) FROM components.message WHERE channelid = $1"
	const pageQuery = `
		SELECT id, channelid, authorid, COALESCE(planetid, ''), content, editedat, createdat
		FROM components.message
		WHERE channelid = $1
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, channelID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err)
	}

	rows, err := repository.pool.Query(context, pageQuery, channelID, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	defer rows.Close()

	messages := make([]*Message, 0, params.Limit)
	for rows.Next() {
		message := &Message{}
		err := rows.Scan(
			&message.ID,
			&message.ChannelID,
			&message.AuthorID,
			&message.PlanetID,
			&message.Content,
			&message.EditedAt,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	return messages, total, nil
}

func (repository *PostgresChatRepository) UpdateMessage(context context.Context, message *Message) error {
	const query = `
		UPDATE components.message
		SET content = $2, editedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, message.ID, message.Content, message.EditedAt)
	return dberr.Wrap(err)
}

func (repository *PostgresChatRepository) DeleteMessage(context context.Context, id string) error {
	const query = "DELETE FROM components.message WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

/*
ToggleReaction flips one user's emoji reaction on a message.

Description: The insert is ON CONFLICT DO NOTHING against the primary key
(targetid, userid, emoji). Zero affected rows means the reaction already
existed, so it is deleted instead. Both branches are single atomic
statements; losing a race simply lands on the other branch.

Parameters:
  - context: context.Context
  - messageID: string
  - userID: string
  - emoji: string

Returns:
  - bool: true when the reaction now exists
  - error: Execution errors
*/
func (repository *PostgresChatRepository) ToggleReaction(context context.Context, messageID, userID, emoji string) (bool, error) {
	const insertQuery = `
		INSERT INTO components.reaction (targetid, userid, emoji, createdat)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (targetid, userid, emoji) DO NOTHING`
	const deleteQuery = `
		DELETE FROM components.reaction
		WHERE targetid = $1 AND userid = $2 AND emoji = $3`

	tag, err := repository.pool.Exec(context, insertQuery, messageID, userID, emoji, time.Now())
	if err != nil {
		return false, dberr.Wrap(err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := repository.pool.Exec(context, deleteQuery, messageID, userID, emoji); err != nil {
		return false, dberr.Wrap(err)
	}
	return false, nil
}

// ListReactions aggregates reaction rows for one message.
func (repository *PostgresChatRepository) ListReactions(context context.Context, messageID string) ([]ReactionCount, error) {
	const query = `
		SELECT emoji, COUNT(*)
		FROM components.reaction
		WHERE targetid = $1
		GROUP BY emoji
		ORDER BY emoji ASC`

	rows, err := repository.pool.Query(context, query, messageID)
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
