package presence

import (
	"sort"
	"sync"
)

// connection is the registry's record of one live transport session. The
// user id is bound at registration time and never changes afterwards.
type connection struct {
	userID string
	rooms  map[string]struct{}
}

// Registry tracks live connections, their user bindings, and room
// membership. "User U is online" is defined as "the registry holds at least
// one connection bound to U" — there is no separate flag that could drift.
//
// One mutex guards all three indexes. Every operation is a pure in-memory
// map mutation, so the compound transport operations (Connect, Disconnect)
// can run their whole sequence inside a single critical section and the
// presence view is always observed consistently with room membership.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*connection         // connID -> connection
	users map[string]map[string]struct{} // userID -> set of connIDs
	rooms map[string]map[string]struct{} // roomID -> set of connIDs
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
		users: make(map[string]map[string]struct{}),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register inserts a new connection bound to userID. An empty userID tracks
// the connection as anonymous: it is excluded from presence until it
// disconnects. Registering an already-known connection id is a no-op.
// Returns true when the user crossed offline -> online.
func (r *Registry) Register(connID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, crossed := r.registerLocked(connID, userID)
	return crossed
}

// Unregister removes a connection, detaching it from its user and from
// every room it had joined, atomically. Unknown ids are a no-op (duplicate
// or late disconnect events are expected from the transport). Returns the
// bound user id and true when the user crossed online -> offline.
func (r *Registry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(connID)
}

// ConnectionsFor returns the connection ids currently bound to userID.
// The result is empty, never nil-checked error, when the user is offline.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// OnlineUserIDs returns the distinct user ids with at least one live
// connection, sorted for deterministic snapshots.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

// Join adds the connection to the room. Idempotent; joining an unknown
// connection is a no-op (the caller must register first).
func (r *Registry) Join(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(connID, roomID)
}

// Leave removes the connection from the room if present; no-op otherwise.
func (r *Registry) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(conn.rooms, roomID)
	r.dropMemberLocked(roomID, connID)
}

// LeaveAll removes the connection from every room it is a member of.
func (r *Registry) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveAllLocked(connID)
}

// MembersOf returns the connection ids joined to the room.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// AllConnIDs returns every live connection id, anonymous ones included.
// Presence snapshots go to all connections, not just identified ones.
func (r *Registry) AllConnIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Connect runs the transport connect sequence in one critical section:
// register the connection, join it to its identity room, and capture the
// presence snapshot. changed reports an offline -> online crossing; the
// snapshot then already includes the new user.
func (r *Registry) Connect(connID, userID string) (online []string, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted, changed := r.registerLocked(connID, userID)
	if !inserted {
		// The connection id is already bound, possibly to another user.
		// Joining the identity room here would leak that user's events.
		return nil, false
	}
	if userID != "" {
		r.joinLocked(connID, UserRoom(userID))
	}
	if changed {
		online = r.onlineLocked()
	}
	return online, changed
}

// Disconnect runs the transport disconnect sequence in one critical
// section: leave every room, unregister, and capture the presence snapshot
// when the user crossed online -> offline.
func (r *Registry) Disconnect(connID string) (online []string, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, changed = r.unregisterLocked(connID)
	if changed {
		online = r.onlineLocked()
	}
	return online, changed
}

// registerLocked reports whether the connection was inserted (false for a
// duplicate id, which leaves the original binding intact) and whether the
// user crossed offline -> online.
func (r *Registry) registerLocked(connID, userID string) (inserted, crossed bool) {
	if _, exists := r.conns[connID]; exists {
		return false, false
	}
	r.conns[connID] = &connection{
		userID: userID,
		rooms:  make(map[string]struct{}),
	}

	if userID == "" {
		return true, false
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[connID] = struct{}{}
	return true, len(set) == 1
}

func (r *Registry) unregisterLocked(connID string) (string, bool) {
	conn, ok := r.conns[connID]
	if !ok {
		return "", false
	}

	r.leaveAllLocked(connID)
	delete(r.conns, connID)

	if conn.userID == "" {
		return "", false
	}

	set := r.users[conn.userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, conn.userID)
		return conn.userID, true
	}
	return conn.userID, false
}

func (r *Registry) joinLocked(connID, roomID string) {
	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	conn.rooms[roomID] = struct{}{}

	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[string]struct{})
		r.rooms[roomID] = set
	}
	set[connID] = struct{}{}
}

func (r *Registry) leaveAllLocked(connID string) {
	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	for roomID := range conn.rooms {
		r.dropMemberLocked(roomID, connID)
	}
	conn.rooms = make(map[string]struct{})
}

// dropMemberLocked removes the connection from a room's member set and
// deletes the room once empty, for memory hygiene.
func (r *Registry) dropMemberLocked(roomID, connID string) {
	set, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.rooms, roomID)
	}
}

func (r *Registry) onlineLocked() []string {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
