// Copyright (c) 2026 Xit. All rights reserved.

package chat

import (
	"sort"
	"sync"
	"time"
)

// RoomInfo is a point-in-time snapshot of one room.
type RoomInfo struct {
	Name         string    `json:"name"`
	MemberCount  int       `json:"member_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// room is the registry's internal record. Guarded by the registry mutex.
// createdAt is stamped by the first join and never changes while the room
// lives; membership churn only moves lastActivity.
type room struct {
	members      map[string]struct{}
	createdAt    time.Time
	lastActivity time.Time
}

// Registry is the in-memory source of truth for room membership.
//
// # Lifecycle
//
// Rooms are created implicitly by the first join and deleted when the last
// member leaves. There is no persistent room record: a room IS its current
// membership.
//
// # Concurrency
//
// All methods are safe for concurrent use. The mutex is never held while
// delivering frames; callers take a snapshot and fan out outside the lock.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// Join adds the user to the room, creating the room if needed.
//
// Idempotent: joining a room the user is already in just refreshes activity.
// Returns the member count after the join.
func (registry *Registry) Join(roomName, user string) int {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	r, ok := registry.rooms[roomName]
	if !ok {
		r = &room{members: make(map[string]struct{}), createdAt: time.Now()}
		registry.rooms[roomName] = r
	}

	r.members[user] = struct{}{}
	r.lastActivity = time.Now()

	return len(r.members)
}

// Leave removes the user from the room. The room is deleted when its last
// member leaves. Leaving a room the user is not in is a no-op.
//
// Returns true if the user was actually a member.
func (registry *Registry) Leave(roomName, user string) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	return registry.leaveLocked(roomName, user)
}

// LeaveAll removes the user from every room they are in and returns the
// names of the rooms that were left. Used on disconnect.
func (registry *Registry) LeaveAll(user string) []string {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	var left []string
	for roomName, r := range registry.rooms {
		if _, ok := r.members[user]; ok {
			left = append(left, roomName)
		}
	}

	// Two passes: leaveLocked mutates the map we are ranging over.
	for _, roomName := range left {
		registry.leaveLocked(roomName, user)
	}

	sort.Strings(left)
	return left
}

// IsMember reports whether the user is currently in the room.
func (registry *Registry) IsMember(roomName, user string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	r, ok := registry.rooms[roomName]
	if !ok {
		return false
	}
	_, ok = r.members[user]
	return ok
}

// Members returns a snapshot of the room's membership. The slice is owned by
// the caller; mutating it cannot affect the registry.
func (registry *Registry) Members(roomName string) []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	r, ok := registry.rooms[roomName]
	if !ok {
		return nil
	}

	members := make([]string, 0, len(r.members))
	for member := range r.members {
		members = append(members, member)
	}
	sort.Strings(members)
	return members
}

// Touch refreshes the room's activity timestamp.
func (registry *Registry) Touch(roomName string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if r, ok := registry.rooms[roomName]; ok {
		r.lastActivity = time.Now()
	}
}

// List returns a snapshot of every live room, sorted by name.
func (registry *Registry) List() []RoomInfo {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rooms := make([]RoomInfo, 0, len(registry.rooms))
	for name, r := range registry.rooms {
		rooms = append(rooms, RoomInfo{
			Name:         name,
			MemberCount:  len(r.members),
			CreatedAt:    r.createdAt,
			LastActivity: r.lastActivity,
		})
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// leaveLocked implements Leave under an already-held write lock.
func (registry *Registry) leaveLocked(roomName, user string) bool {
	r, ok := registry.rooms[roomName]
	if !ok {
		return false
	}
	if _, member := r.members[user]; !member {
		return false
	}

	delete(r.members, user)
	r.lastActivity = time.Now()

	if len(r.members) == 0 {
		delete(registry.rooms, roomName)
	}
	return true
}
