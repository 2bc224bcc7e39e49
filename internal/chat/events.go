// Copyright (c) 2026 Xit. All rights reserved.

// Package chat implements the real-time communication core: the WebSocket
// gateway, the in-memory room registry, and the message router.
//
// # Architecture
//
// The package splits along the same seams as every feature in this codebase:
//
//   - events.go: the wire protocol (frames and payloads).
//   - room.go: the in-memory room registry, the single source of truth for
//     membership.
//   - service.go: the Router, which validates, persists, and fans out.
//   - gateway.go: the WebSocket edge. Owns connections and implements the
//     Delivery contract the Router fans out through.
//
// # Concurrency Model
//
// Each connection has exactly one writer goroutine draining an egress
// channel. Everything that wants to send to a client enqueues a frame; only
// the writer touches the socket. Registry state is guarded by its own mutex
// and never held across a send.
package chat

import "encoding/json"

// Event names carried on the wire. Client-to-server and server-to-client
// names share one namespace, mirroring the mobile client's event map.
const (
	// Client → server
	EventJoinRoom  = "joinRoom"
	EventLeaveRoom = "leaveRoom"
	EventTyping    = "typing"
	EventListRooms = "listRooms"
	EventBroadcast = "broadcast"

	// Both directions: a client sends roomMessage into a room, and every
	// member receives the persisted form under the same name.
	EventRoomMessage = "roomMessage"

	// Server → client
	EventMessage    = "message" // global broadcast delivery
	EventUserJoined = "user-joined"
	EventUserLeft   = "user-left"
	EventRoomList   = "roomList"
	EventError      = "error"
)

// Frame is the envelope for every message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals a payload into a [Frame]. Marshal failures are
// programmer errors on our own payload types, so they panic.
func NewFrame(event string, payload any) Frame {
	if payload == nil {
		return Frame{Event: event}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		panic("chat: unmarshalable payload for event " + event)
	}
	return Frame{Event: event, Data: data}
}

// # Client Payloads

// JoinRoomPayload asks to join (or create) a room.
type JoinRoomPayload struct {
	Room string `json:"room"`
}

// LeaveRoomPayload asks to leave a room.
type LeaveRoomPayload struct {
	Room string `json:"room"`
}

// RoomMessagePayload carries a chat message into a room.
type RoomMessagePayload struct {
	Room string `json:"room"`
	Body string `json:"body"`
}

// TypingPayload signals a typing indicator to a room.
type TypingPayload struct {
	Room string `json:"room"`
}

// BroadcastPayload carries a message to every connected client.
type BroadcastPayload struct {
	Body string `json:"body"`
}

// # Server Payloads

// MessagePayload is a delivered chat message.
type MessagePayload struct {
	Room   string `json:"room,omitempty"`
	Sender string `json:"sender"`
	Body   string `json:"body"`
	SentAt string `json:"sent_at"`
}

// PresencePayload announces a user joining or leaving.
type PresencePayload struct {
	Room        string `json:"room,omitempty"`
	User        string `json:"user"`
	MemberCount int    `json:"member_count,omitempty"`
}

// RoomListPayload answers a listRooms request.
type RoomListPayload struct {
	Rooms []RoomInfo `json:"rooms"`
}

// TypingEventPayload is the fan-out form of a typing indicator.
type TypingEventPayload struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// ErrorPayload reports a failed operation back to the offending client only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
