// Copyright (c) 2026 Xit. All rights reserved.

package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// Stable failure kinds for room operations. Delivered to clients inside
// error frames, never as HTTP responses.
var (
	// ErrNotARoomMember rejects messages and typing signals into rooms the
	// sender never joined.
	ErrNotARoomMember = apperr.New("NOT_A_ROOM_MEMBER", "You are not a member of this room", http.StatusForbidden)

	// ErrEmptyMessage rejects blank message bodies.
	ErrEmptyMessage = apperr.New("EMPTY_MESSAGE", "Message body must not be empty", http.StatusBadRequest)

	// ErrInvalidRoom rejects blank room names.
	ErrInvalidRoom = apperr.New("INVALID_ROOM", "Room name must not be empty", http.StatusBadRequest)
)

// Delivery is how the Router pushes frames to connected clients.
//
// # Why an interface?
//
// The gateway implements it over real WebSocket connections; tests implement
// it with an in-memory recorder. Routing logic stays independent of sockets.
//
// Both methods are fire-and-forget: delivery to a slow or gone client is the
// gateway's problem, never the Router's.
type Delivery interface {
	// Deliver enqueues a frame for one user. Unknown users are a no-op.
	Deliver(user string, frame Frame)

	// DeliverAll enqueues a frame for every connected user.
	DeliverAll(frame Frame)
}

// Router validates room operations, persists messages, and fans frames out
// through the [Delivery].
//
// The Registry is the single source of truth for membership; the Router
// never tracks its own.
type Router struct {
	registry *Registry
	messages MessageStore
	delivery Delivery
	logger   *slog.Logger
}

// NewRouter constructs a [Router].
func NewRouter(registry *Registry, messages MessageStore, delivery Delivery, logger *slog.Logger) *Router {
	return &Router{
		registry: registry,
		messages: messages,
		delivery: delivery,
		logger:   logger,
	}
}

// Join puts the user in the room and announces the arrival to every member,
// the newcomer included.
func (router *Router) Join(ctx context.Context, user, roomName string) error {
	if strings.TrimSpace(roomName) == "" {
		return ErrInvalidRoom
	}

	memberCount := router.registry.Join(roomName, user)

	frame := NewFrame(EventUserJoined, PresencePayload{
		Room:        roomName,
		User:        user,
		MemberCount: memberCount,
	})
	for _, member := range router.registry.Members(roomName) {
		router.delivery.Deliver(member, frame)
	}

	return nil
}

// Leave removes the user from the room and announces the departure to the
// remaining members. Leaving a room the user is not in is a silent no-op.
func (router *Router) Leave(ctx context.Context, user, roomName string) error {
	if !router.registry.Leave(roomName, user) {
		return nil
	}

	frame := NewFrame(EventUserLeft, PresencePayload{Room: roomName, User: user})
	for _, member := range router.registry.Members(roomName) {
		router.delivery.Deliver(member, frame)
	}

	return nil
}

// Route validates, persists, and fans out a room message to every member,
// the sender included.
//
// # Ordering
//
// The message is persisted BEFORE fan-out: a message a recipient saw but
// history never recorded is worse than the reverse.
func (router *Router) Route(ctx context.Context, sender, roomName, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}
	if !router.registry.IsMember(roomName, sender) {
		return ErrNotARoomMember
	}

	message := &Message{
		RoomName: roomName,
		SenderID: sender,
		Body:     body,
		SentAt:   time.Now(),
	}

	if err := router.messages.Save(ctx, message); err != nil {
		router.logger.ErrorContext(ctx, "chat_message_persist_failed",
			slog.String("room", roomName),
			slog.Any("error", err),
		)
		return apperr.Internal(err)
	}

	router.registry.Touch(roomName)

	frame := NewFrame(EventRoomMessage, MessagePayload{
		Room:   roomName,
		Sender: sender,
		Body:   body,
		SentAt: message.SentAt.UTC().Format(time.RFC3339),
	})
	for _, member := range router.registry.Members(roomName) {
		router.delivery.Deliver(member, frame)
	}

	return nil
}

// Typing fans a typing indicator out to every room member EXCEPT the sender.
// Indicators are neither validated beyond membership nor persisted.
func (router *Router) Typing(ctx context.Context, sender, roomName string) error {
	if !router.registry.IsMember(roomName, sender) {
		return ErrNotARoomMember
	}

	frame := NewFrame(EventTyping, TypingEventPayload{Room: roomName, User: sender})
	for _, member := range router.registry.Members(roomName) {
		if member == sender {
			continue
		}
		router.delivery.Deliver(member, frame)
	}

	return nil
}

// ListRooms answers with a snapshot of every live room, delivered only to
// the requester.
func (router *Router) ListRooms(ctx context.Context, user string) {
	router.delivery.Deliver(user, NewFrame(EventRoomList, RoomListPayload{
		Rooms: router.registry.List(),
	}))
}

// Broadcast sends a message to every connected client, regardless of rooms.
// Broadcasts are transient and never persisted.
func (router *Router) Broadcast(ctx context.Context, sender, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyMessage
	}

	router.delivery.DeliverAll(NewFrame(EventMessage, MessagePayload{
		Sender: sender,
		Body:   body,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	}))

	return nil
}

// Disconnect tears down all room state for a vanished user and announces
// the departures. Called by the gateway when a connection dies.
func (router *Router) Disconnect(ctx context.Context, user string) {
	for _, roomName := range router.registry.LeaveAll(user) {
		frame := NewFrame(EventUserLeft, PresencePayload{Room: roomName, User: user})
		for _, member := range router.registry.Members(roomName) {
			router.delivery.Deliver(member, frame)
		}
	}
}

// History returns the most recent messages for a room, newest first.
// Served over REST, not the socket.
func (router *Router) History(ctx context.Context, roomName string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return router.messages.ListRecent(ctx, roomName, limit)
}
