// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package notification

import (
	"context"

	"github.com/starbasehq/starbase/pkg/pagination"
)

// NotificationRepository defines the data access contract for notifications.
type NotificationRepository interface {

	// Create persists a new notification.
	Create(context context.Context, notification *Notification) error

	// FindByID returns a single notification, or apperr NOT_FOUND.
	FindByID(context context.Context, id string) (*Notification, error)

	/*
		ListByRecipient returns a page of the user's notifications, newest
		first.

		Parameters:
		  - context: context.Context
		  - recipientID: string
		  - params: pagination.Params

		Returns:
		  - []*Notification: Page of notifications
		  - int: Total count
		  - error: Retrieval failures
	*/
	ListByRecipient(context context.Context, recipientID string, params pagination.Params) ([]*Notification, int, error)

	// MarkRead flags a single notification as read.
	MarkRead(context context.Context, id string) error

	// MarkAllRead flags every unread notification of a recipient as read.
	MarkAllRead(context context.Context, recipientID string) error

	// DeleteByRecipient removes every notification of a recipient.
	DeleteByRecipient(context context.Context, recipientID string) error
}
