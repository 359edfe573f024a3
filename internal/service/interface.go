package service

import (
	"context"
	"errors"

	"github.com/nimbuschat/nimbus/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfRequest        = errors.New("cannot send a friend request to yourself")
	ErrNotReceiver        = errors.New("only the receiver can respond to a request")
	ErrNotOwner           = errors.New("only the group owner can do this")
	ErrOwnerCannotLeave   = errors.New("the owner cannot leave their own group")
	ErrEmptyMessage       = errors.New("message has no content")
)

// Notifier delivers realtime events to users and group rooms. The presence
// service implements it; tests substitute a recorder.
type Notifier interface {
	EmitToUser(userID string, event domain.EventKind, payload interface{})
	EmitToGroup(groupID string, event domain.EventKind, payload interface{})
	OnlineUsers() []string
	IsOnline(userID string) bool
}

// AuthService handles registration, login, and profile management.
type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, *domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID string)
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error)
}

// FriendService handles friend requests and friendships.
type FriendService interface {
	SendRequest(ctx context.Context, senderID, friendCode string) (*domain.FriendRequest, error)
	RespondRequest(ctx context.Context, responderID string, requestID uint, accept bool) error
	ListPendingRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error)
	ListFriends(ctx context.Context, userID string) ([]domain.User, error)
	RemoveFriend(ctx context.Context, userID, friendID string) error
}

// GroupService handles group lifecycle and membership.
type GroupService interface {
	Create(ctx context.Context, ownerID string, req *domain.CreateGroupRequest) (*domain.Group, error)
	Get(ctx context.Context, userID, groupID string) (*domain.Group, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Group, error)
	Update(ctx context.Context, userID, groupID string, req *domain.UpdateGroupRequest) (*domain.Group, error)
	Delete(ctx context.Context, userID, groupID string) error
	AddMember(ctx context.Context, actorID, groupID, userID string) error
	RemoveMember(ctx context.Context, actorID, groupID, userID string) error
	Leave(ctx context.Context, userID, groupID string) error
}

// MessageService delivers chat messages. Messages are realtime-only and
// never persisted; an offline recipient simply misses them.
type MessageService interface {
	SendDirect(ctx context.Context, senderID, receiverID string, req *domain.SendDirectMessageRequest) (*domain.DirectMessagePayload, error)
	SendGroup(ctx context.Context, senderID, groupID string, req *domain.SendGroupMessageRequest) (*domain.GroupMessagePayload, error)
	ClearDirectHistory(ctx context.Context, userID, peerID string) error
	ClearGroupHistory(ctx context.Context, userID, groupID string) error
	DeleteGroupMessage(ctx context.Context, userID, groupID, messageID string) error
}
