// Copyright (c) 2026 Xit. All rights reserved.

package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moa-mel/xit-backend/internal/chat"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/sec"
)

// fakeAuthenticator maps raw tokens to identifiers.
type fakeAuthenticator struct {
	tokens map[string]string
}

func (auth *fakeAuthenticator) Authenticate(_ context.Context, tokenStr string) (*sec.AuthClaims, error) {
	identifier, ok := auth.tokens[tokenStr]
	if !ok {
		return nil, apperr.Unauthorized("Invalid token")
	}
	return &sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: identifier},
	}, nil
}

// fakeUsers resolves the identifiers that still have an account on record.
type fakeUsers struct {
	known map[string]bool
}

func (users *fakeUsers) Exists(_ context.Context, identifier string) (bool, error) {
	return users.known[identifier], nil
}

// prefixGuard rejects joins into rooms under a guarded prefix.
type prefixGuard struct {
	prefix string
}

func (guard *prefixGuard) Approve(_ context.Context, _, roomName string) error {
	if strings.HasPrefix(roomName, guard.prefix) {
		return apperr.New("SOURCE_ENTITY_GONE", "This room's source is no longer live", http.StatusNotFound)
	}
	return nil
}

// gatewayFixture is a running gateway behind an httptest server.
type gatewayFixture struct {
	server  *httptest.Server
	gateway *chat.Gateway
	store   *memoryMessageStore
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	authenticator := &fakeAuthenticator{tokens: map[string]string{
		"token-alice": "alice",
		"token-bob":   "bob",
		"token-carol": "carol",
		// Token issued before the account was deleted.
		"token-ghost": "ghost",
	}}
	users := &fakeUsers{known: map[string]bool{"alice": true, "bob": true, "carol": true}}

	registry := chat.NewRegistry()
	store := &memoryMessageStore{}
	gateway := chat.NewGateway(authenticator, users, &prefixGuard{prefix: "locked-"}, slog.Default())
	router := chat.NewRouter(registry, store, gateway, slog.Default())
	gateway.AttachRouter(router)

	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)

	return &gatewayFixture{server: server, gateway: gateway, store: store}
}

// dial opens an authenticated client connection.
func (fixture *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(fixture.server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// send writes a client frame.
func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(chat.Frame{Event: event, Data: data}))
}

// waitFor reads frames until one with the wanted event arrives. Presence
// noise from other connections is skipped.
func waitFor(t *testing.T, conn *websocket.Conn, event string) chat.Frame {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var frame chat.Frame
		require.NoError(t, conn.ReadJSON(&frame), "waiting for %q", event)
		if frame.Event == event {
			return frame
		}
	}
}

/*
TestGateway_RejectsBadHandshake verifies that a missing or unknown token
never upgrades, and that the two rejections are indistinguishable.
*/
func TestGateway_RejectsBadHandshake(t *testing.T) {
	fixture := newGatewayFixture(t)
	base := "ws" + strings.TrimPrefix(fixture.server.URL, "http")

	// 1. No token
	_, response, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	missingBody, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	// 2. Unknown token
	_, response, err = websocket.DefaultDialer.Dial(base+"?token=forged", nil)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	forgedBody, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	// The caller cannot tell the failure modes apart
	assert.Empty(t, missingBody)
	assert.Equal(t, missingBody, forgedBody)

	assert.Zero(t, fixture.gateway.ConnectedUsers())
}

/*
TestGateway_RejectsVanishedAccount verifies that a still-valid token whose
account no longer exists never upgrades, with the same opaque rejection as
any other bad handshake.
*/
func TestGateway_RejectsVanishedAccount(t *testing.T) {
	fixture := newGatewayFixture(t)
	base := "ws" + strings.TrimPrefix(fixture.server.URL, "http")

	_, response, err := websocket.DefaultDialer.Dial(base+"?token=token-ghost", nil)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Empty(t, body)

	assert.Zero(t, fixture.gateway.ConnectedUsers())
}

/*
TestGateway_EndToEndRoomMessage is the full path: two clients join a room
over real sockets, one speaks, both hear it, and history records it.
*/
func TestGateway_EndToEndRoomMessage(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "token-alice")
	bob := fixture.dial(t, "token-bob")

	send(t, alice, chat.EventJoinRoom, chat.JoinRoomPayload{Room: "general"})
	waitFor(t, alice, chat.EventUserJoined)

	send(t, bob, chat.EventJoinRoom, chat.JoinRoomPayload{Room: "general"})
	waitFor(t, bob, chat.EventUserJoined)

	send(t, alice, chat.EventRoomMessage, chat.RoomMessagePayload{Room: "general", Body: "hello over the wire"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := waitFor(t, conn, chat.EventRoomMessage)

		var payload chat.MessagePayload
		require.NoError(t, json.Unmarshal(frame.Data, &payload))
		assert.Equal(t, "alice", payload.Sender)
		assert.Equal(t, "hello over the wire", payload.Body)
		assert.Equal(t, "general", payload.Room)
	}

	// Persisted exactly once
	assert.Eventually(t, func() bool { return fixture.store.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}

/*
TestGateway_NonMemberGetsErrorFrame verifies that a message into an unjoined
room bounces back as an error frame to the sender only.
*/
func TestGateway_NonMemberGetsErrorFrame(t *testing.T) {
	fixture := newGatewayFixture(t)

	carol := fixture.dial(t, "token-carol")
	send(t, carol, chat.EventRoomMessage, chat.RoomMessagePayload{Room: "general", Body: "knock knock"})

	frame := waitFor(t, carol, chat.EventError)

	var payload chat.ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "NOT_A_ROOM_MEMBER", payload.Code)
	assert.Zero(t, fixture.store.count())
}

/*
TestGateway_GuardBlocksRoom verifies that the room guard's rejection reaches
the client as an error frame and no membership is created.
*/
func TestGateway_GuardBlocksRoom(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "token-alice")
	send(t, alice, chat.EventJoinRoom, chat.JoinRoomPayload{Room: "locked-42"})

	frame := waitFor(t, alice, chat.EventError)

	var payload chat.ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "SOURCE_ENTITY_GONE", payload.Code)

	// A message into the guarded room confirms no membership leaked through
	send(t, alice, chat.EventRoomMessage, chat.RoomMessagePayload{Room: "locked-42", Body: "hi"})
	frame = waitFor(t, alice, chat.EventError)
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "NOT_A_ROOM_MEMBER", payload.Code)
}

/*
TestGateway_UnknownEvent verifies unknown events bounce as error frames.
*/
func TestGateway_UnknownEvent(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "token-alice")
	require.NoError(t, alice.WriteJSON(chat.Frame{Event: "selfDestruct"}))

	frame := waitFor(t, alice, chat.EventError)

	var payload chat.ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "UNKNOWN_EVENT", payload.Code)
}

/*
TestGateway_ArrivalNotEchoedToNewcomer verifies that a fresh connection is
announced to everyone else but never back to itself.
*/
func TestGateway_ArrivalNotEchoedToNewcomer(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "token-alice")
	bob := fixture.dial(t, "token-bob")

	// Alice hears bob arrive
	frame := waitFor(t, alice, chat.EventUserJoined)
	var payload chat.PresencePayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "bob", payload.User)

	// Bob never hears his own arrival: the first frame he reads is the
	// answer to his listRooms request, not a user-joined.
	require.NoError(t, bob.WriteJSON(chat.Frame{Event: chat.EventListRooms}))
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(3*time.Second)))

	var first chat.Frame
	require.NoError(t, bob.ReadJSON(&first))
	assert.Equal(t, chat.EventRoomList, first.Event)
}

/*
TestGateway_PresenceOnDisconnect verifies that closing a socket announces the
departure to everyone still connected.
*/
func TestGateway_PresenceOnDisconnect(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "token-alice")
	bob := fixture.dial(t, "token-bob")

	// Wait until alice can see bob is online
	assert.Eventually(t, func() bool { return fixture.gateway.ConnectedUsers() == 2 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, bob.Close())

	frame := waitFor(t, alice, chat.EventUserLeft)

	var payload chat.PresencePayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "bob", payload.User)
}

/*
TestGateway_ListRooms verifies the listRooms round-trip over the socket.
*/
func TestGateway_ListRooms(t *testing.T) {
	fixture := newGatewayFixture(t)

	alice := fixture.dial(t, "token-alice")
	send(t, alice, chat.EventJoinRoom, chat.JoinRoomPayload{Room: "general"})
	waitFor(t, alice, chat.EventUserJoined)

	require.NoError(t, alice.WriteJSON(chat.Frame{Event: chat.EventListRooms}))
	frame := waitFor(t, alice, chat.EventRoomList)

	var payload chat.RoomListPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	require.Len(t, payload.Rooms, 1)
	assert.Equal(t, "general", payload.Rooms[0].Name)
	assert.Equal(t, 1, payload.Rooms[0].MemberCount)
}
