// Copyright (c) 2026 Xit. All rights reserved.

package chat_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moa-mel/xit-backend/internal/chat"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// recorderDelivery captures fan-out instead of writing to sockets.
type recorderDelivery struct {
	mu        sync.Mutex
	perUser   map[string][]chat.Frame
	broadcast []chat.Frame
}

func newRecorderDelivery() *recorderDelivery {
	return &recorderDelivery{perUser: make(map[string][]chat.Frame)}
}

func (recorder *recorderDelivery) Deliver(user string, frame chat.Frame) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.perUser[user] = append(recorder.perUser[user], frame)
}

func (recorder *recorderDelivery) DeliverAll(frame chat.Frame) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.broadcast = append(recorder.broadcast, frame)
}

func (recorder *recorderDelivery) framesFor(user string) []chat.Frame {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return append([]chat.Frame(nil), recorder.perUser[user]...)
}

func (recorder *recorderDelivery) reset() {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.perUser = make(map[string][]chat.Frame)
	recorder.broadcast = nil
}

// memoryMessageStore is an in-memory MessageStore.
type memoryMessageStore struct {
	mu       sync.Mutex
	messages []chat.Message
	failNext bool
}

func (store *memoryMessageStore) Save(_ context.Context, message *chat.Message) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.failNext {
		store.failNext = false
		return assert.AnError
	}

	message.ID = int64(len(store.messages) + 1)
	store.messages = append(store.messages, *message)
	return nil
}

func (store *memoryMessageStore) ListRecent(_ context.Context, roomName string, limit int) ([]chat.Message, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var result []chat.Message
	for i := len(store.messages) - 1; i >= 0 && len(result) < limit; i-- {
		if store.messages[i].RoomName == roomName {
			result = append(result, store.messages[i])
		}
	}
	return result, nil
}

func (store *memoryMessageStore) count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.messages)
}

// routerFixture wires a Router against in-memory collaborators.
type routerFixture struct {
	router   *chat.Router
	registry *chat.Registry
	delivery *recorderDelivery
	store    *memoryMessageStore
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	registry := chat.NewRegistry()
	delivery := newRecorderDelivery()
	store := &memoryMessageStore{}
	router := chat.NewRouter(registry, store, delivery, slog.Default())

	return &routerFixture{router: router, registry: registry, delivery: delivery, store: store}
}

// eventsFor extracts the event names delivered to one user.
func eventsFor(frames []chat.Frame) []string {
	events := make([]string, 0, len(frames))
	for _, frame := range frames {
		events = append(events, frame.Event)
	}
	return events
}

/*
TestRouter_JoinAnnouncesToMembers verifies the arrival announcement reaches
every member, newcomer included, with the member count.
*/
func TestRouter_JoinAnnouncesToMembers(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	require.NoError(t, fixture.router.Join(ctx, "bob", "general"))

	bobJoin := fixture.delivery.framesFor("alice")
	require.NotEmpty(t, bobJoin)

	last := bobJoin[len(bobJoin)-1]
	assert.Equal(t, chat.EventUserJoined, last.Event)

	var payload chat.PresencePayload
	require.NoError(t, json.Unmarshal(last.Data, &payload))
	assert.Equal(t, "bob", payload.User)
	assert.Equal(t, "general", payload.Room)
	assert.Equal(t, 2, payload.MemberCount)

	// The newcomer hears their own arrival too
	assert.Contains(t, eventsFor(fixture.delivery.framesFor("bob")), chat.EventUserJoined)
}

/*
TestRouter_RouteRequiresMembership verifies the membership gate: a message
into a room the sender never joined is rejected, nothing is persisted, and
nobody hears anything.
*/
func TestRouter_RouteRequiresMembership(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	fixture.delivery.reset()

	err := fixture.router.Route(ctx, "mallory", "general", "let me in")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_A_ROOM_MEMBER"))

	assert.Zero(t, fixture.store.count())
	assert.Empty(t, fixture.delivery.framesFor("alice"))
}

/*
TestRouter_RoutePersistsAndFansOut verifies the happy path: persisted first,
then delivered to every member including the sender, and to nobody else.
*/
func TestRouter_RoutePersistsAndFansOut(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	require.NoError(t, fixture.router.Join(ctx, "bob", "general"))
	require.NoError(t, fixture.router.Join(ctx, "carol", "random"))
	fixture.delivery.reset()

	require.NoError(t, fixture.router.Route(ctx, "alice", "general", "hello room"))

	// 1. Persisted
	assert.Equal(t, 1, fixture.store.count())

	// 2. Delivered to both members, sender included, under the same event
	// name the client sent
	for _, member := range []string{"alice", "bob"} {
		frames := fixture.delivery.framesFor(member)
		require.Len(t, frames, 1, member)
		assert.Equal(t, chat.EventRoomMessage, frames[0].Event)

		var payload chat.MessagePayload
		require.NoError(t, json.Unmarshal(frames[0].Data, &payload))
		assert.Equal(t, "alice", payload.Sender)
		assert.Equal(t, "hello room", payload.Body)
		assert.Equal(t, "general", payload.Room)
	}

	// 3. Other rooms hear nothing
	assert.Empty(t, fixture.delivery.framesFor("carol"))
}

/*
TestRouter_RouteFailedPersistBlocksFanOut verifies ordering: if the store
write fails, no recipient ever sees the message.
*/
func TestRouter_RouteFailedPersistBlocksFanOut(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	fixture.delivery.reset()
	fixture.store.failNext = true

	err := fixture.router.Route(ctx, "alice", "general", "doomed")
	require.Error(t, err)
	assert.Empty(t, fixture.delivery.framesFor("alice"))
}

/*
TestRouter_RouteRejectsEmptyBody verifies blank messages never enter the system.
*/
func TestRouter_RouteRejectsEmptyBody(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))

	err := fixture.router.Route(ctx, "alice", "general", "   ")
	assert.True(t, apperr.HasCode(err, "EMPTY_MESSAGE"))
	assert.Zero(t, fixture.store.count())
}

/*
TestRouter_TypingExcludesSender verifies the typing indicator reaches everyone
in the room except its origin.
*/
func TestRouter_TypingExcludesSender(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	require.NoError(t, fixture.router.Join(ctx, "bob", "general"))
	fixture.delivery.reset()

	require.NoError(t, fixture.router.Typing(ctx, "alice", "general"))

	assert.Empty(t, fixture.delivery.framesFor("alice"), "sender must not receive their own indicator")

	frames := fixture.delivery.framesFor("bob")
	require.Len(t, frames, 1)
	assert.Equal(t, chat.EventTyping, frames[0].Event)

	// Non-members cannot signal typing
	err := fixture.router.Typing(ctx, "mallory", "general")
	assert.True(t, apperr.HasCode(err, "NOT_A_ROOM_MEMBER"))
}

/*
TestRouter_LeaveAnnouncesToRemaining verifies departure announcements.
*/
func TestRouter_LeaveAnnouncesToRemaining(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	require.NoError(t, fixture.router.Join(ctx, "bob", "general"))
	fixture.delivery.reset()

	require.NoError(t, fixture.router.Leave(ctx, "alice", "general"))

	frames := fixture.delivery.framesFor("bob")
	require.Len(t, frames, 1)
	assert.Equal(t, chat.EventUserLeft, frames[0].Event)

	// The departed user hears nothing
	assert.Empty(t, fixture.delivery.framesFor("alice"))

	// Leaving again is silent
	fixture.delivery.reset()
	require.NoError(t, fixture.router.Leave(ctx, "alice", "general"))
	assert.Empty(t, fixture.delivery.framesFor("bob"))
}

/*
TestRouter_BroadcastIsTransient verifies global broadcast reaches everyone
and is never persisted.
*/
func TestRouter_BroadcastIsTransient(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Broadcast(ctx, "alice", "hello world"))

	require.Len(t, fixture.delivery.broadcast, 1)
	assert.Equal(t, chat.EventMessage, fixture.delivery.broadcast[0].Event)
	assert.Zero(t, fixture.store.count())

	err := fixture.router.Broadcast(ctx, "alice", "")
	assert.True(t, apperr.HasCode(err, "EMPTY_MESSAGE"))
}

/*
TestRouter_DisconnectLeavesEverything verifies the vanished user is removed
from all rooms and each room hears the departure.
*/
func TestRouter_DisconnectLeavesEverything(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	require.NoError(t, fixture.router.Join(ctx, "alice", "random"))
	require.NoError(t, fixture.router.Join(ctx, "bob", "general"))
	require.NoError(t, fixture.router.Join(ctx, "carol", "random"))
	fixture.delivery.reset()

	fixture.router.Disconnect(ctx, "alice")

	assert.False(t, fixture.registry.IsMember("general", "alice"))
	assert.False(t, fixture.registry.IsMember("random", "alice"))

	assert.Contains(t, eventsFor(fixture.delivery.framesFor("bob")), chat.EventUserLeft)
	assert.Contains(t, eventsFor(fixture.delivery.framesFor("carol")), chat.EventUserLeft)
}

/*
TestRouter_History verifies recent-history reads with limit clamping.
*/
func TestRouter_History(t *testing.T) {
	fixture := newRouterFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.router.Join(ctx, "alice", "general"))
	require.NoError(t, fixture.router.Route(ctx, "alice", "general", "first"))
	require.NoError(t, fixture.router.Route(ctx, "alice", "general", "second"))

	messages, err := fixture.router.History(ctx, "general", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Body, "newest first")
}
