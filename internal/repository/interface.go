package repository

import (
	"context"
	"errors"

	"github.com/nimbuschat/nimbus/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrRequestNotFound = errors.New("friend request not found")
	ErrRequestExists   = errors.New("friend request already exists")
	ErrAlreadyFriends  = errors.New("users are already friends")
	ErrNotFriends      = errors.New("users are not friends")
	ErrGroupNotFound   = errors.New("group not found")
	ErrAlreadyMember   = errors.New("user is already a group member")
	ErrNotMember       = errors.New("user is not a group member")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.UserModel) error
	GetByID(ctx context.Context, id string) (*domain.UserModel, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserModel, error)
	GetByFriendCode(ctx context.Context, code string) (*domain.UserModel, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.UserModel, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

// FriendRepository defines persistence operations for friend requests and
// friendships.
type FriendRepository interface {
	CreateRequest(ctx context.Context, senderID, receiverID string) (*domain.FriendRequestModel, error)
	GetRequest(ctx context.Context, id uint) (*domain.FriendRequestModel, error)
	ListPendingForReceiver(ctx context.Context, receiverID string) ([]domain.FriendRequestModel, error)
	ResolveRequest(ctx context.Context, id uint, status string) error
	CreateFriendship(ctx context.Context, userID, friendID string) error
	DeleteFriendship(ctx context.Context, userID, friendID string) error
	AreFriends(ctx context.Context, userID, friendID string) (bool, error)
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// GroupRepository defines persistence operations for groups and their
// membership.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.GroupModel, memberIDs []string) error
	GetByID(ctx context.Context, id string) (*domain.GroupModel, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID, userID, role string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
	ListForUser(ctx context.Context, userID string) ([]domain.GroupModel, error)
}
