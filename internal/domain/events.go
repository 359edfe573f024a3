package domain

import "encoding/json"

// EventKind identifies a realtime event on the WebSocket wire. The set is
// closed: inbound events are dispatched through a single exhaustive switch
// and unknown kinds produce an error event, never a silent drop.
type EventKind string

// Client -> server events.
const (
	EventJoinGroup  EventKind = "joinGroup"
	EventLeaveGroup EventKind = "leaveGroup"
	EventPing       EventKind = "ping"
)

// Server -> client events. Names are part of the wire contract with the
// web frontend and must not change.
const (
	EventOnlineUsers EventKind = "getOnlineUsers"
	EventPong        EventKind = "pong"
	EventError       EventKind = "error"

	EventNewMessage         EventKind = "newMessage"
	EventChatHistoryCleared EventKind = "chatHistoryCleared"

	EventNewGroupMessage         EventKind = "newGroupMessage"
	EventGroupMessageDeleted     EventKind = "groupMessageDeleted"
	EventGroupChatHistoryCleared EventKind = "groupChatHistoryCleared"

	EventNewFriendRequest      EventKind = "newFriendRequest"
	EventFriendRequestResponse EventKind = "friendRequestResponse"
	EventFriendRemoved         EventKind = "friendRemoved"

	EventGroupCreated       EventKind = "groupCreated"
	EventGroupUpdated       EventKind = "groupUpdated"
	EventGroupMemberAdded   EventKind = "groupMemberAdded"
	EventGroupMemberRemoved EventKind = "groupMemberRemoved"
	EventRemovedFromGroup   EventKind = "removedFromGroup"
	EventGroupMemberLeft    EventKind = "groupMemberLeft"
	EventGroupDeleted       EventKind = "groupDeleted"
)

// Envelope is the wire format for every WebSocket frame in both directions.
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope.
func NewEnvelope(event EventKind, payload interface{}) (*Envelope, error) {
	if payload == nil {
		return &Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: data}, nil
}
