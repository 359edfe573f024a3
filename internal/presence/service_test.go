package presence_test

import (
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/presence"
)

// recordingEmitter captures every emit for assertions.
type recordingEmitter struct {
	mu    sync.Mutex
	calls []emitCall
}

type emitCall struct {
	connIDs []string
	event   domain.EventKind
	payload interface{}
}

func (e *recordingEmitter) EmitTo(connIDs []string, event domain.EventKind, payload interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := append([]string(nil), connIDs...)
	sort.Strings(ids)
	e.calls = append(e.calls, emitCall{connIDs: ids, event: event, payload: payload})
}

func (e *recordingEmitter) snapshots() []emitCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitCall
	for _, c := range e.calls {
		if c.event == domain.EventOnlineUsers {
			out = append(out, c)
		}
	}
	return out
}

func (e *recordingEmitter) byEvent(event domain.EventKind) []emitCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitCall
	for _, c := range e.calls {
		if c.event == event {
			out = append(out, c)
		}
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	rooms []string
}

func (p *recordingPublisher) PublishRoomEvent(roomID string, event domain.EventKind, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, roomID)
}

func newTestService() (*presence.Service, *recordingEmitter) {
	emitter := &recordingEmitter{}
	svc := presence.NewService(presence.NewRegistry(), emitter)
	return svc, emitter
}

// --- Broadcast rule ---

func TestBroadcastOnlyOnCrossings(t *testing.T) {
	svc, emitter := newTestService()

	// Three devices, one user: only the first connect is a crossing.
	svc.HandleConnect("c1", "alice")
	svc.HandleConnect("c2", "alice")
	svc.HandleConnect("c3", "alice")
	if got := len(emitter.snapshots()); got != 1 {
		t.Fatalf("expected 1 snapshot after 3 connects of one user, got %d", got)
	}

	// Tearing down devices broadcasts only when the last one goes.
	svc.HandleDisconnect("c1")
	svc.HandleDisconnect("c2")
	if got := len(emitter.snapshots()); got != 1 {
		t.Fatalf("expected no snapshot while devices remain, got %d", got)
	}
	svc.HandleDisconnect("c3")
	if got := len(emitter.snapshots()); got != 2 {
		t.Fatalf("expected 2 snapshots total, got %d", got)
	}

	last := emitter.snapshots()[1]
	if online, ok := last.payload.([]string); !ok || len(online) != 0 {
		t.Errorf("expected empty online list in final snapshot, got %v", last.payload)
	}
}

func TestOverlappingReconnectSuppressesBroadcast(t *testing.T) {
	svc, emitter := newTestService()

	// The new tab connects before the old one closes, the common page
	// refresh shape. The user never goes offline, so nothing fires after
	// the initial snapshot.
	svc.HandleConnect("old", "alice")
	svc.HandleConnect("new", "alice")
	svc.HandleDisconnect("old")

	if got := len(emitter.snapshots()); got != 1 {
		t.Errorf("expected only the initial snapshot, got %d", got)
	}
	if !svc.IsOnline("alice") {
		t.Error("alice should remain online through the reconnect")
	}
}

func TestSnapshotReachesAllConnections(t *testing.T) {
	svc, emitter := newTestService()

	svc.HandleConnect("c1", "alice")
	svc.HandleConnect("c2", "bob")

	snaps := emitter.snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	// The second snapshot goes to both live connections and lists both
	// users, sorted.
	last := snaps[1]
	if !reflect.DeepEqual(last.connIDs, []string{"c1", "c2"}) {
		t.Errorf("snapshot should reach every connection, got %v", last.connIDs)
	}
	if online, _ := last.payload.([]string); !reflect.DeepEqual(online, []string{"alice", "bob"}) {
		t.Errorf("expected sorted [alice bob], got %v", last.payload)
	}
}

func TestAnonymousConnectionReceivesButNeverTriggers(t *testing.T) {
	svc, emitter := newTestService()

	svc.HandleConnect("anon", "")
	if got := len(emitter.snapshots()); got != 0 {
		t.Fatalf("anonymous connect must not broadcast, got %d snapshots", got)
	}

	svc.HandleConnect("c1", "alice")
	snaps := emitter.snapshots()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if !reflect.DeepEqual(snaps[0].connIDs, []string{"anon", "c1"}) {
		t.Errorf("anonymous connection should receive the snapshot, got %v", snaps[0].connIDs)
	}
	if online, _ := snaps[0].payload.([]string); !reflect.DeepEqual(online, []string{"alice"}) {
		t.Errorf("anonymous user leaked into presence: %v", snaps[0].payload)
	}
}

// --- Targeted emits ---

func TestEmitToUserReachesEveryDevice(t *testing.T) {
	svc, emitter := newTestService()

	svc.HandleConnect("phone", "alice")
	svc.HandleConnect("laptop", "alice")
	svc.HandleConnect("c3", "bob")

	payload := domain.FriendRemovedPayload{UserID: "bob"}
	svc.EmitToUser("alice", domain.EventFriendRemoved, payload)

	calls := emitter.byEvent(domain.EventFriendRemoved)
	if len(calls) != 1 {
		t.Fatalf("expected 1 emit, got %d", len(calls))
	}
	if !reflect.DeepEqual(calls[0].connIDs, []string{"laptop", "phone"}) {
		t.Errorf("expected both of alice's devices, got %v", calls[0].connIDs)
	}
}

func TestGroupFanOut(t *testing.T) {
	svc, emitter := newTestService()

	svc.HandleConnect("c1", "alice")
	svc.HandleConnect("c2", "bob")
	svc.HandleConnect("c3", "carol")
	svc.JoinGroup("c1", "g1")
	svc.JoinGroup("c2", "g1")

	if size := svc.GroupRoomSize("g1"); size != 2 {
		t.Errorf("expected room size 2, got %d", size)
	}

	svc.EmitToGroup("g1", domain.EventNewGroupMessage, domain.GroupMessagePayload{GroupID: "g1"})

	calls := emitter.byEvent(domain.EventNewGroupMessage)
	if len(calls) != 1 {
		t.Fatalf("expected 1 emit, got %d", len(calls))
	}
	if !reflect.DeepEqual(calls[0].connIDs, []string{"c1", "c2"}) {
		t.Errorf("group event leaked outside the room: %v", calls[0].connIDs)
	}

	// After leaving, bob's connection no longer receives group events.
	svc.LeaveGroup("c2", "g1")
	svc.EmitToGroup("g1", domain.EventNewGroupMessage, domain.GroupMessagePayload{GroupID: "g1"})
	calls = emitter.byEvent(domain.EventNewGroupMessage)
	if !reflect.DeepEqual(calls[1].connIDs, []string{"c1"}) {
		t.Errorf("expected only c1 after leave, got %v", calls[1].connIDs)
	}
}

func TestEmitToOfflineUserIsNoOp(t *testing.T) {
	svc, emitter := newTestService()
	svc.HandleConnect("c1", "alice")

	svc.EmitToUser("ghost", domain.EventNewMessage, domain.DirectMessagePayload{})
	if got := len(emitter.byEvent(domain.EventNewMessage)); got != 0 {
		t.Errorf("emit to an offline user should deliver nothing, got %d emits", got)
	}
}

func TestJoinGroupEmptyIDIgnored(t *testing.T) {
	svc, _ := newTestService()
	svc.HandleConnect("c1", "alice")

	svc.JoinGroup("c1", "")
	svc.LeaveGroup("c1", "")
	// The prefix alone must not have become a room.
	svc.EmitToRoom(presence.GroupRoomPrefix, domain.EventPong, nil)
}

// --- Relay ---

func TestRelayPublishOnLocalEmitOnly(t *testing.T) {
	svc, _ := newTestService()
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	svc.HandleConnect("c1", "alice")
	svc.EmitToUser("alice", domain.EventNewMessage, domain.DirectMessagePayload{})

	if got := len(pub.rooms); got != 1 {
		t.Fatalf("expected 1 published room event, got %d", got)
	}
	if pub.rooms[0] != presence.UserRoom("alice") {
		t.Errorf("expected identity room, got %s", pub.rooms[0])
	}

	// Events arriving from peers are re-emitted locally without being
	// published again, or relays would loop.
	svc.EmitToRoomLocal(presence.UserRoom("alice"), domain.EventNewMessage, domain.DirectMessagePayload{})
	if got := len(pub.rooms); got != 1 {
		t.Errorf("local re-emit must not republish, got %d published events", got)
	}
}
