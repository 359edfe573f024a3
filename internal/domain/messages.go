package domain

import "time"

// Error codes carried by error events and API error responses.
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Client -> server event payloads.

// GroupRoomPayload carries the group id for joinGroup / leaveGroup events.
type GroupRoomPayload struct {
	GroupID string `json:"groupId"`
}

// Server -> client event payloads.

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DirectMessagePayload is the data of a newMessage event. Messages are
// fire-and-forget: this payload is the only representation they ever have.
type DirectMessagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"` // serving URL, not the raw bytes
	CreatedAt  time.Time `json:"createdAt"`
}

// GroupMessagePayload is the data of a newGroupMessage event.
type GroupMessagePayload struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"groupId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryClearedPayload is the data of chatHistoryCleared and
// groupChatHistoryCleared events.
type HistoryClearedPayload struct {
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

// GroupMessageDeletedPayload is the data of a groupMessageDeleted event.
type GroupMessageDeletedPayload struct {
	GroupID   string `json:"groupId"`
	MessageID string `json:"messageId"`
}

// FriendRequestPayload is the data of a newFriendRequest event.
type FriendRequestPayload struct {
	RequestID  uint      `json:"requestId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FriendRequestResponsePayload is the data of a friendRequestResponse event.
type FriendRequestResponsePayload struct {
	RequestID   uint   `json:"requestId"`
	ResponderID string `json:"responderId"`
	Responder   string `json:"responderName"`
	Accepted    bool   `json:"accepted"`
}

// FriendRemovedPayload is the data of a friendRemoved event.
type FriendRemovedPayload struct {
	UserID string `json:"userId"`
}

// GroupMemberPayload is the data of groupMemberAdded, groupMemberRemoved,
// removedFromGroup and groupMemberLeft events.
type GroupMemberPayload struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
	UserID    string `json:"userId"`
}

// GroupDeletedPayload is the data of a groupDeleted event.
type GroupDeletedPayload struct {
	GroupID   string `json:"groupId"`
	GroupName string `json:"groupName"`
}
