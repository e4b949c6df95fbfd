// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package notification

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

// PostgresNotificationRepository implements the NotificationRepository
// interface using pgx.
type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new PostgreSQL implementation of the
// NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

const notificationColumns = `id, recipientid, kind, message, COALESCE(sourceid, ''), read, createdat`

func (repository *PostgresNotificationRepository) Create(context context.Context, notification *Notification) error {
	const query = `
		INSERT INTO notifications.notification (id, recipientid, kind, message, sourceid, read, createdat)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`

	notification.CreatedAt = time.Now()

	_, err := repository.pool.Exec(context, query,
		notification.ID,
		notification.RecipientID,
		notification.Kind,
		notification.Message,
		notification.SourceID,
		notification.Read,
		notification.CreatedAt,
	)
	return dberr.Wrap(err)
}

func (repository *PostgresNotificationRepository) FindByID(context context.Context, id string) (*Notification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications.notification
		WHERE id = $1`

	notification := &Notification{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&notification.ID,
		&notification.RecipientID,
		&notification.Kind,
		&notification.Message,
		&notification.SourceID,
		&notification.Read,
		&notification.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Notification")
		}
		return nil, dberr.Wrap(err)
	}
	return notification, nil
}

func (repository *PostgresNotificationRepository) ListByRecipient(context context.Context, recipientID string, params pagination.Params) ([]*Notification, int, error) {
	const countQuery = "SELECT COUNT(*) FROM notifications.notification WHERE recipientid = $1"
	const pageQuery = `
		SELECT ` + notificationColumns + `
		FROM notifications.notification
		WHERE recipientid = $1
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, recipientID).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err)
	}

	rows, err := repository.pool.Query(context, pageQuery, recipientID, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	defer rows.Close()

	notifications := make([]*Notification, 0, params.Limit)
	for rows.Next() {
		notification := &Notification{}
		err := rows.Scan(
			&notification.ID,
			&notification.RecipientID,
			&notification.Kind,
			&notification.Message,
			&notification.SourceID,
			&notification.Read,
			&notification.CreatedAt,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err)
	}
	return notifications, total, nil
}

func (repository *PostgresNotificationRepository) MarkRead(context context.Context, id string) error {
	const query = "UPDATE notifications.notification SET read = TRUE WHERE id = $1"
	_, err := repository.pool.Exec(context, query, id)
	return dberr.Wrap(err)
}

func (repository *PostgresNotificationRepository) MarkAllRead(context context.Context, recipientID string) error {
	const query = "UPDATE notifications.notification SET read = TRUE WHERE recipientid = $1 AND read = FALSE"
	_, err := repository.pool.Exec(context, query, recipientID)
	return dberr.Wrap(err)
}

func (repository *PostgresNotificationRepository) DeleteByRecipient(context context.Context, recipientID string) error {
	const query = "DELETE FROM notifications.notification WHERE recipientid = $1"
	_, err := repository.pool.Exec(context, query, recipientID)
	return dberr.Wrap(err)
}
