package domain

import (
	"time"
)

// Friend request status values.
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusRejected = "rejected"
)

// Group member roles.
const (
	GroupRoleOwner  = "owner"
	GroupRoleMember = "member"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string    `gorm:"type:varchar(50);not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	FriendCode   string    `gorm:"column:friend_code;type:varchar(12);uniqueIndex;not null"`
	AvatarKey    string    `gorm:"column:avatar_key;type:varchar(255)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// FriendRequestModel is the GORM model for the friend_requests table.
type FriendRequestModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	SenderID   string    `gorm:"column:sender_id;type:varchar(36);not null;uniqueIndex:idx_request_pair"`
	ReceiverID string    `gorm:"column:receiver_id;type:varchar(36);not null;uniqueIndex:idx_request_pair"`
	Status     string    `gorm:"type:varchar(16);not null;default:pending"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (FriendRequestModel) TableName() string { return "friend_requests" }

// FriendshipModel is the GORM model for the friendships table. A friendship
// is stored as two rows, one per direction, so listing a user's friends is
// a single indexed query.
type FriendshipModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_friend_pair"`
	FriendID  string    `gorm:"column:friend_id;type:varchar(36);not null;uniqueIndex:idx_friend_pair"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (FriendshipModel) TableName() string { return "friendships" }

// GroupModel is the GORM model for the chat_groups table.
type GroupModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	Name        string    `gorm:"type:varchar(100);not null"`
	Description string    `gorm:"type:varchar(500)"`
	OwnerID     string    `gorm:"column:owner_id;type:varchar(36);not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (GroupModel) TableName() string { return "chat_groups" }

// GroupMemberModel is the GORM model for the group_members table.
type GroupMemberModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	GroupID   string    `gorm:"column:group_id;type:varchar(36);not null;uniqueIndex:idx_member_pair"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:idx_member_pair"`
	Role      string    `gorm:"type:varchar(16);not null;default:member"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (GroupMemberModel) TableName() string { return "group_members" }

// User is the domain representation of a user, safe to serialize.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FriendCode string    `json:"friend_code"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Group is the domain representation of a group with its member ids.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	MemberIDs   []string  `json:"member_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// FriendRequest is the domain representation of a pending request.
type FriendRequest struct {
	ID         uint      `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Request / response DTOs for the HTTP API.

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents a refresh token request.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents a profile update request.
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"omitempty,min=3,max=50"`
	Avatar   string `json:"avatar"` // base64 data URL, stored via pkg/storage
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

// SendFriendRequestRequest targets a user by friend code.
type SendFriendRequestRequest struct {
	FriendCode string `json:"friend_code" binding:"required"`
}

// RespondFriendRequestRequest accepts or rejects a pending request.
type RespondFriendRequestRequest struct {
	Accept bool `json:"accept"`
}

// CreateGroupRequest creates a group with an optional initial member list.
type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"max=500"`
	MemberIDs   []string `json:"member_ids"`
}

// UpdateGroupRequest updates group metadata.
type UpdateGroupRequest struct {
	Name        string `json:"name" binding:"omitempty,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// AddGroupMemberRequest adds one user to a group.
type AddGroupMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// SendDirectMessageRequest sends a direct message to one user.
type SendDirectMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"` // base64 data URL, optional
}

// SendGroupMessageRequest sends a message to a group room.
type SendGroupMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}
