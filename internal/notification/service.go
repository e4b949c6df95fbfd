// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

package notification

import (
	"context"
	"log/slog"

	"github.com/starbasehq/starbase/internal/platform/apperr"
	"github.com/starbasehq/starbase/internal/pubsub"
	"github.com/starbasehq/starbase/pkg/pagination"
	"github.com/starbasehq/starbase/pkg/uuid"
)

// Service implements notification use cases.
//
// The persisted row is the source of truth; the live broker event is
// best-effort on top of it, mirroring the chat fan-out discipline.
type Service struct {
	notificationRepository NotificationRepository
	broker                 pubsub.Broker
	logger                 *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(repo NotificationRepository, broker pubsub.Broker, logger *slog.Logger) *Service {
	return &Service{
		notificationRepository: repo,
		broker:                 broker,
		logger:                 logger,
	}
}

/*
Notify persists a notification and fans it out on the notification topic.

Description: Producers (chat, planets) call this through a narrow interface.
The broker event carries the recipient id so the subscription layer can
filter the shared topic per user.

Parameters:
  - context: context.Context
  - recipientID: string
  - kind: string (machine-readable category)
  - message: string
  - sourceID: string ("" when no source entity applies)

Returns:
  - error: Persistence failures
*/
func (service *Service) Notify(context context.Context, recipientID, kind, message, sourceID string) error {
	notification := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
		SourceID:    sourceID,
	}
	if err := service.notificationRepository.Create(context, notification); err != nil {
		return err
	}

	entity, err := pubsub.MarshalEntity(notification)
	if err != nil {
		service.logger.Error("notification_event_marshal_failed", slog.String("error", err.Error()))
		return nil
	}

	event := pubsub.Event{
		Kind:        pubsub.KindNotification,
		RecipientID: recipientID,
		Entity:      entity,
	}
	if err := pubsub.PublishEvent(context, service.broker, pubsub.TopicNotifications, event); err != nil {
		service.logger.Error("notification_event_publish_failed",
			slog.String("recipient_id", recipientID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

/*
List returns a page of the caller's notifications, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - params: pagination.Params

Returns:
  - []*Notification: Page of notifications
  - int: Total count
  - error: Storage errors
*/
func (service *Service) List(context context.Context, userID string, params pagination.Params) ([]*Notification, int, error) {
	if userID == "" {
		return nil, 0, apperr.Unauthorized("Authentication required")
	}
	return service.notificationRepository.ListByRecipient(context, userID, params)
}

/*
MarkRead flags one of the caller's notifications as read. A notification
belonging to someone else does not exist for the caller.

Parameters:
  - context: context.Context
  - userID: string
  - notificationID: string

Returns:
  - error: apperr NOT_FOUND or storage errors
*/
func (service *Service) MarkRead(context context.Context, userID, notificationID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}

	notification, err := service.notificationRepository.FindByID(context, notificationID)
	if err != nil {
		return err
	}
	if notification.RecipientID != userID {
		return apperr.NotFound("Notification")
	}
	return service.notificationRepository.MarkRead(context, notificationID)
}

// MarkAllRead flags every unread notification of the caller as read.
func (service *Service) MarkAllRead(context context.Context, userID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}
	return service.notificationRepository.MarkAllRead(context, userID)
}

// Clear removes every notification of the caller.
func (service *Service) Clear(context context.Context, userID string) error {
	if userID == "" {
		return apperr.Unauthorized("Authentication required")
	}
	return service.notificationRepository.DeleteByRecipient(context, userID)
}
