// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// WebSocket event stream.
//
// One socket per client merges two broker topics: chat messages, filtered per
// event through the channel read check, and notifications, filtered on the
// recipient id. Both filters run against fresh state on every delivery, so a
// revoked membership silences a live subscription on the very next event.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starbasehq/starbase/internal/component/chat"
	"github.com/starbasehq/starbase/internal/platform/constants"
	"github.com/starbasehq/starbase/internal/platform/ctxutil"
	"github.com/starbasehq/starbase/internal/platform/middleware"
	"github.com/starbasehq/starbase/internal/pubsub"
)

// upgrader performs the HTTP → WebSocket handshake. Origin enforcement
// follows the same policy as the REST surface: tokens authenticate, origins
// do not.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewStreamHandler builds the /ws endpoint over the given broker.
//
// Anonymous sockets are legal: they receive public-channel traffic and no
// notifications, exactly like an anonymous REST caller sees public planets.
func NewStreamHandler(broker pubsub.Broker, chatService *chat.Service, logger *slog.Logger) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		userID := ""
		if claims := middleware.GetUser(request.Context()); claims != nil {
			userID = claims.UserID
		}

		conn, err := upgrader.Upgrade(writer, request, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			logger.Warn("ws_upgrade_failed", slog.String("error", err.Error()))
			return
		}

		session := &streamSession{
			conn:        conn,
			userID:      userID,
			chatService: chatService,
			broker:      broker,
			logger: logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("user_id", userID),
			),
		}
		session.run(request)
	}
}

// streamSession is the state of one connected socket.
type streamSession struct {
	conn        *websocket.Conn
	userID      string
	chatService *chat.Service
	broker      pubsub.Broker
	logger      *slog.Logger
}

// run subscribes, pumps events until either side closes, and tears down.
func (session *streamSession) run(request *http.Request) {
	defer session.conn.Close()

	// The subscriptions live on the connection's context: closing the socket
	// cancels them, and vice versa.
	ctx := request.Context()

	messages, err := pubsub.SubscribeFiltered(ctx, session.broker, pubsub.TopicMessages, session.allowMessage, session.logger)
	if err != nil {
		session.logger.Error("ws_subscribe_failed", slog.String("topic", pubsub.TopicMessages), slog.String("error", err.Error()))
		return
	}
	defer messages.Close()

	notifications, err := pubsub.SubscribeFiltered(ctx, session.broker, pubsub.TopicNotifications, session.allowNotification, session.logger)
	if err != nil {
		session.logger.Error("ws_subscribe_failed", slog.String("topic", pubsub.TopicNotifications), slog.String("error", err.Error()))
		return
	}
	defer notifications.Close()

	// Read pump: the client sends nothing we act on, but reading is how the
	// peer's close frame and pong responses surface.
	closed := make(chan struct{})
	go session.readPump(closed)

	session.writePump(messages.Events(), notifications.Events(), closed)
}

// allowMessage is the per-event predicate for the chat topic.
func (session *streamSession) allowMessage(ctx context.Context, event pubsub.Event) bool {
	return session.chatService.CanFollowChannel(ctx, session.userID, event.ChannelID)
}

// allowNotification is the per-event predicate for the notification topic.
// Anonymous sockets match nothing.
func (session *streamSession) allowNotification(_ context.Context, event pubsub.Event) bool {
	return session.userID != "" && event.RecipientID == session.userID
}

// readPump drains the connection until the peer goes away.
func (session *streamSession) readPump(closed chan<- struct{}) {
	defer close(closed)

	session.conn.SetReadLimit(512)
	_ = session.conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	session.conn.SetPongHandler(func(string) error {
		return session.conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	})

	for {
		if _, _, err := session.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.logger.Warn("ws_read_failed", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump forwards authorized events and keeps the connection alive.
func (session *streamSession) writePump(messages, notifications <-chan pubsub.Event, closed <-chan struct{}) {
	ticker := time.NewTicker(constants.WSPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-messages:
			if !ok || !session.send(event) {
				return
			}
		case event, ok := <-notifications:
			if !ok || !session.send(event) {
				return
			}
		case <-ticker.C:
			_ = session.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
			if err := session.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// send writes one event frame; false means the connection is done.
func (session *streamSession) send(event pubsub.Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		session.logger.Error("ws_event_marshal_failed", slog.String("error", err.Error()))
		return true
	}

	_ = session.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
	if err := session.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return false
	}
	return true
}
