package presence

import (
	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/pkg/log"
)

// Emitter delivers events to live connections. The hub implements it.
// Delivery is best-effort: emitting to a connection that has gone away, or
// whose send queue is full, drops the frame without surfacing an error.
type Emitter interface {
	EmitTo(connIDs []string, event domain.EventKind, payload interface{})
}

// RoomPublisher forwards a room-scoped event to other instances. Wired only
// when the relay is enabled; presence snapshots never go through it.
type RoomPublisher interface {
	PublishRoomEvent(roomID string, event domain.EventKind, payload interface{})
}

// Service implements the presence protocol on top of the registry: it runs
// the connect/disconnect sequences, applies the broadcast rule (a full
// online-users snapshot to everyone, only when a user's connection count
// crosses zero), and offers room-targeted emit helpers to the application
// services.
type Service struct {
	registry  *Registry
	emitter   Emitter
	publisher RoomPublisher
}

// NewService creates the presence service.
func NewService(registry *Registry, emitter Emitter) *Service {
	return &Service{registry: registry, emitter: emitter}
}

// SetPublisher attaches the cross-instance relay. Optional.
func (s *Service) SetPublisher(p RoomPublisher) {
	s.publisher = p
}

// HandleConnect registers a new connection and joins it to the identity
// room of its user. When the user comes online, every connected client
// receives the updated snapshot; otherwise nothing is broadcast.
func (s *Service) HandleConnect(connID, userID string) {
	online, changed := s.registry.Connect(connID, userID)

	log.L().Debug().
		Str(log.FieldConnID, connID).
		Str(log.FieldUserID, userID).
		Bool("came_online", changed).
		Msg("connection registered")

	if changed {
		s.broadcastOnline(online)
	}
}

// HandleDisconnect tears down a connection: room memberships first, then
// the registration itself, in one registry critical section. The snapshot
// broadcast fires only when this was the user's last connection.
func (s *Service) HandleDisconnect(connID string) {
	online, changed := s.registry.Disconnect(connID)

	log.L().Debug().
		Str(log.FieldConnID, connID).
		Bool("went_offline", changed).
		Msg("connection removed")

	if changed {
		s.broadcastOnline(online)
	}
}

// JoinGroup subscribes the connection to a group room. Membership is not
// authorized here; the HTTP layer owns group membership and the frontend
// only joins rooms for groups it belongs to.
func (s *Service) JoinGroup(connID, groupID string) {
	if groupID == "" {
		return
	}
	s.registry.Join(connID, GroupRoom(groupID))
	log.L().Debug().
		Str(log.FieldConnID, connID).
		Str(log.FieldGroupID, groupID).
		Msg("joined group room")
}

// LeaveGroup unsubscribes the connection from a group room.
func (s *Service) LeaveGroup(connID, groupID string) {
	if groupID == "" {
		return
	}
	s.registry.Leave(connID, GroupRoom(groupID))
	log.L().Debug().
		Str(log.FieldConnID, connID).
		Str(log.FieldGroupID, groupID).
		Msg("left group room")
}

// OnlineUsers returns the current snapshot of online user ids, sorted.
func (s *Service) OnlineUsers() []string {
	return s.registry.OnlineUserIDs()
}

// IsOnline reports whether the user has at least one live connection.
func (s *Service) IsOnline(userID string) bool {
	return len(s.registry.ConnectionsFor(userID)) > 0
}

// GroupRoomSize returns the number of connections subscribed to the
// group's room on this instance.
func (s *Service) GroupRoomSize(groupID string) int {
	return len(s.registry.MembersOf(GroupRoom(groupID)))
}

// EmitToUser delivers an event to every device of one user via their
// identity room, locally and through the relay when one is attached.
func (s *Service) EmitToUser(userID string, event domain.EventKind, payload interface{}) {
	s.EmitToRoom(UserRoom(userID), event, payload)
}

// EmitToGroup delivers an event to every connection subscribed to the
// group's room.
func (s *Service) EmitToGroup(groupID string, event domain.EventKind, payload interface{}) {
	s.EmitToRoom(GroupRoom(groupID), event, payload)
}

// EmitToRoom delivers an event to the room's local members and forwards it
// to peer instances when the relay is enabled.
func (s *Service) EmitToRoom(roomID string, event domain.EventKind, payload interface{}) {
	s.EmitToRoomLocal(roomID, event, payload)
	if s.publisher != nil {
		s.publisher.PublishRoomEvent(roomID, event, payload)
	}
}

// EmitToRoomLocal delivers an event to local room members only. The relay
// calls this for events received from peers, so they are never re-published.
func (s *Service) EmitToRoomLocal(roomID string, event domain.EventKind, payload interface{}) {
	members := s.registry.MembersOf(roomID)
	if len(members) == 0 {
		return
	}
	s.emitter.EmitTo(members, event, payload)
}

// broadcastOnline sends the full snapshot to every connection, identified
// or anonymous. The snapshot was captured inside the registry transition,
// so concurrent transitions cannot interleave a stale view with a newer
// one under the same emit. The emit happens on every crossing, even when
// no connections remain to hear it; delivery is the emitter's problem.
func (s *Service) broadcastOnline(online []string) {
	conns := s.registry.AllConnIDs()
	s.emitter.EmitTo(conns, domain.EventOnlineUsers, online)
	log.L().Debug().
		Int("online", len(online)).
		Int("connections", len(conns)).
		Msg("presence snapshot broadcast")
}
