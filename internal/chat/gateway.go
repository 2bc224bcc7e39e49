// Copyright (c) 2026 Xit. All rights reserved.

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/sec"
)

// Connection tuning. writeWait bounds a single socket write; pingPeriod must
// be shorter than pongWait or every connection dies at the first idle period.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	egressBuffer   = 32
)

// TokenAuthenticator is the slice of the auth service the gateway needs:
// the full gate (signature, expiry, revocation) run once at handshake time.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, tokenStr string) (*sec.AuthClaims, error)
}

// UserResolver answers whether an identifier still maps to a live account.
// A token outlives account deletion; the handshake closes that gap.
type UserResolver interface {
	Exists(ctx context.Context, identifier string) (bool, error)
}

// RoomGuard approves joins into guarded room namespaces (e.g. a livestream's
// chat room only exists while the stream is live). A nil guard approves
// everything.
type RoomGuard interface {
	Approve(ctx context.Context, user, roomName string) error
}

// connection is one authenticated WebSocket client.
//
// # Single Writer
//
// egress is drained by exactly one goroutine (writePump), which is the only
// code allowed to touch the socket's write side. Everyone else enqueues.
type connection struct {
	user   string
	socket *websocket.Conn
	egress chan Frame

	closeOnce sync.Once
	done      chan struct{}
}

// enqueue offers a frame to the connection without ever blocking the caller.
// A client too slow to drain its buffer loses frames, not the whole server.
func (conn *connection) enqueue(frame Frame) bool {
	select {
	case conn.egress <- frame:
		return true
	case <-conn.done:
		return false
	default:
		return false
	}
}

// close makes the writePump exit, which in turn closes the socket.
func (conn *connection) close() {
	conn.closeOnce.Do(func() { close(conn.done) })
}

// Gateway is the WebSocket edge of the chat system.
//
// It authenticates handshakes, owns the connection table, pumps frames in
// both directions, and implements [Delivery] for the [Router].
type Gateway struct {
	authenticator TokenAuthenticator
	users         UserResolver
	guard         RoomGuard
	logger        *slog.Logger
	upgrader      websocket.Upgrader

	router *Router

	mu    sync.RWMutex
	conns map[string]*connection
}

// NewGateway constructs a [Gateway]. AttachRouter must be called before the
// gateway serves its first connection.
func NewGateway(authenticator TokenAuthenticator, users UserResolver, guard RoomGuard, logger *slog.Logger) *Gateway {
	return &Gateway{
		authenticator: authenticator,
		users:         users,
		guard:         guard,
		logger:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS layer for REST; for
			// sockets the token is the credential, not the Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*connection),
	}
}

// AttachRouter wires the router in after construction. The gateway and the
// router reference each other, so one side has to be attached late.
func (gateway *Gateway) AttachRouter(router *Router) {
	gateway.router = router
}

// # Delivery Implementation

// Deliver enqueues a frame for one user. Unknown or gone users are a no-op.
func (gateway *Gateway) Deliver(user string, frame Frame) {
	gateway.mu.RLock()
	conn, ok := gateway.conns[user]
	gateway.mu.RUnlock()

	if !ok {
		return
	}
	if !conn.enqueue(frame) {
		gateway.logger.Warn("chat_frame_dropped",
			slog.String("user", user),
			slog.String("event", frame.Event),
		)
	}
}

// DeliverAll enqueues a frame for every connected user.
func (gateway *Gateway) DeliverAll(frame Frame) {
	gateway.mu.RLock()
	conns := make([]*connection, 0, len(gateway.conns))
	for _, conn := range gateway.conns {
		conns = append(conns, conn)
	}
	gateway.mu.RUnlock()

	for _, conn := range conns {
		if !conn.enqueue(frame) {
			gateway.logger.Warn("chat_frame_dropped",
				slog.String("user", conn.user),
				slog.String("event", frame.Event),
			)
		}
	}
}

// deliverOthers enqueues a frame for every connection except the given one.
// Presence announcements use this: you are not told about your own arrival.
func (gateway *Gateway) deliverOthers(skip *connection, frame Frame) {
	gateway.mu.RLock()
	conns := make([]*connection, 0, len(gateway.conns))
	for _, conn := range gateway.conns {
		if conn != skip {
			conns = append(conns, conn)
		}
	}
	gateway.mu.RUnlock()

	for _, conn := range conns {
		if !conn.enqueue(frame) {
			gateway.logger.Warn("chat_frame_dropped",
				slog.String("user", conn.user),
				slog.String("event", frame.Event),
			)
		}
	}
}

// ConnectedUsers returns the number of live connections.
func (gateway *Gateway) ConnectedUsers() int {
	gateway.mu.RLock()
	defer gateway.mu.RUnlock()
	return len(gateway.conns)
}

// # Handshake

// ServeHTTP upgrades GET /ws/chat requests into chat connections.
//
// # Authentication
//
// The access token arrives as a 'token' query parameter (browser WebSocket
// clients cannot set headers) or an Authorization header. It is verified
// once, at handshake time; revocation mid-connection does not sever an
// established socket. The identity must also still resolve to a live
// account: a valid token for a deleted user never upgrades.
func (gateway *Gateway) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get("token")
	if token == "" {
		if header := request.Header.Get("Authorization"); len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}
	}
	if token == "" {
		gateway.reject(writer)
		return
	}

	claims, err := gateway.authenticator.Authenticate(request.Context(), token)
	if err != nil {
		gateway.reject(writer)
		return
	}

	exists, err := gateway.users.Exists(request.Context(), claims.Identifier())
	if err != nil {
		gateway.logger.Warn("chat_user_lookup_failed", slog.Any("error", err))
		gateway.reject(writer)
		return
	}
	if !exists {
		gateway.reject(writer)
		return
	}

	socket, err := gateway.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		gateway.logger.Warn("chat_upgrade_failed", slog.Any("error", err))
		return
	}

	gateway.run(claims.Identifier(), socket)
}

// reject refuses the handshake. Every failure mode gets the same response;
// the caller learns nothing about which check failed.
func (gateway *Gateway) reject(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusUnauthorized)
}

// run registers the connection, announces presence, and blocks on the read
// loop until the client goes away.
func (gateway *Gateway) run(user string, socket *websocket.Conn) {
	conn := &connection{
		user:   user,
		socket: socket,
		egress: make(chan Frame, egressBuffer),
		done:   make(chan struct{}),
	}

	// One connection per user: a new socket displaces the old one.
	gateway.mu.Lock()
	if previous, ok := gateway.conns[user]; ok {
		previous.close()
	}
	gateway.conns[user] = conn
	gateway.mu.Unlock()

	gateway.logger.Info("chat_connected", slog.String("user", user))
	gateway.deliverOthers(conn, NewFrame(EventUserJoined, PresencePayload{User: user}))

	go gateway.writePump(conn)
	gateway.readLoop(conn)

	// readLoop returned: the client is gone.
	conn.close()

	gateway.mu.Lock()
	// Only forget the user if this connection is still the registered one;
	// a displaced socket must not tear down its replacement.
	if current, ok := gateway.conns[user]; ok && current == conn {
		delete(gateway.conns, user)
		gateway.mu.Unlock()

		gateway.router.Disconnect(context.Background(), user)
		gateway.DeliverAll(NewFrame(EventUserLeft, PresencePayload{User: user}))
		gateway.logger.Info("chat_disconnected", slog.String("user", user))
		return
	}
	gateway.mu.Unlock()
}

// # Pumps

// writePump is the single writer for one socket. It drains the egress
// channel and keeps the connection alive with pings.
func (gateway *Gateway) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.socket.Close()
	}()

	for {
		select {
		case frame := <-conn.egress:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.done:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.socket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readLoop parses inbound frames and dispatches them to the router. It
// returns when the socket errors or closes.
func (gateway *Gateway) readLoop(conn *connection) {
	conn.socket.SetReadLimit(maxMessageSize)
	_ = conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	conn.socket.SetPongHandler(func(string) error {
		return conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := conn.socket.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				gateway.logger.Warn("chat_read_failed",
					slog.String("user", conn.user),
					slog.Any("error", err),
				)
			}
			return
		}

		gateway.dispatch(conn, frame)
	}
}

// dispatch executes one inbound frame. Failures go back to the offending
// client as an error frame; they never touch anyone else.
func (gateway *Gateway) dispatch(conn *connection, frame Frame) {
	ctx := context.Background()

	switch frame.Event {
	case EventJoinRoom:
		var payload JoinRoomPayload
		if !gateway.decode(conn, frame.Data, &payload) {
			return
		}
		if gateway.guard != nil {
			if err := gateway.guard.Approve(ctx, conn.user, payload.Room); err != nil {
				gateway.sendError(conn, err)
				return
			}
		}
		if err := gateway.router.Join(ctx, conn.user, payload.Room); err != nil {
			gateway.sendError(conn, err)
		}

	case EventLeaveRoom:
		var payload LeaveRoomPayload
		if !gateway.decode(conn, frame.Data, &payload) {
			return
		}
		if err := gateway.router.Leave(ctx, conn.user, payload.Room); err != nil {
			gateway.sendError(conn, err)
		}

	case EventRoomMessage:
		var payload RoomMessagePayload
		if !gateway.decode(conn, frame.Data, &payload) {
			return
		}
		if err := gateway.router.Route(ctx, conn.user, payload.Room, payload.Body); err != nil {
			gateway.sendError(conn, err)
		}

	case EventTyping:
		var payload TypingPayload
		if !gateway.decode(conn, frame.Data, &payload) {
			return
		}
		if err := gateway.router.Typing(ctx, conn.user, payload.Room); err != nil {
			gateway.sendError(conn, err)
		}

	case EventListRooms:
		gateway.router.ListRooms(ctx, conn.user)

	case EventBroadcast:
		var payload BroadcastPayload
		if !gateway.decode(conn, frame.Data, &payload) {
			return
		}
		if err := gateway.router.Broadcast(ctx, conn.user, payload.Body); err != nil {
			gateway.sendError(conn, err)
		}

	default:
		conn.enqueue(NewFrame(EventError, ErrorPayload{
			Code:    "UNKNOWN_EVENT",
			Message: "Unknown event: " + frame.Event,
		}))
	}
}

// decode unmarshals a payload, reporting malformed data back to the client.
func (gateway *Gateway) decode(conn *connection, data json.RawMessage, target any) bool {
	if err := json.Unmarshal(data, target); err != nil {
		conn.enqueue(NewFrame(EventError, ErrorPayload{
			Code:    "INVALID_FRAME",
			Message: "Malformed event payload",
		}))
		return false
	}
	return true
}

// sendError maps a Go error onto an error frame for one client.
func (gateway *Gateway) sendError(conn *connection, err error) {
	payload := ErrorPayload{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}
	if appError := apperr.As(err); appError != nil {
		payload = ErrorPayload{Code: appError.Code, Message: appError.Message}
	}
	conn.enqueue(NewFrame(EventError, payload))
}
