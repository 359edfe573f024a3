package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/internal/service"
	"github.com/nimbuschat/nimbus/pkg/database"
	"github.com/nimbuschat/nimbus/pkg/jwt"
	"github.com/nimbuschat/nimbus/pkg/storage"
)

// recordNotifier captures emitted events instead of delivering them.
type recordNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	toUser  string
	toGroup string
	event   domain.EventKind
	payload interface{}
}

func (n *recordNotifier) EmitToUser(userID string, event domain.EventKind, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{toUser: userID, event: event, payload: payload})
}

func (n *recordNotifier) EmitToGroup(groupID string, event domain.EventKind, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{toGroup: groupID, event: event, payload: payload})
}

func (n *recordNotifier) OnlineUsers() []string { return nil }
func (n *recordNotifier) IsOnline(string) bool  { return false }

func (n *recordNotifier) find(event domain.EventKind) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedEvent
	for _, e := range n.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	auth     service.AuthService
	friends  service.FriendService
	groups   service.GroupService
	messages service.MessageService
	notifier *recordNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.FriendRequestModel{},
		&domain.FriendshipModel{},
		&domain.GroupModel{},
		&domain.GroupMemberModel{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "/uploads",
	})
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	attachments := service.NewAttachmentStore(store)

	tokens, err := jwt.NewManager("test-secret", time.Minute, time.Hour, "nimbus-test")
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}

	userRepo := repository.NewGormUserRepository(db)
	friendRepo := repository.NewGormFriendRepository(db)
	groupRepo := repository.NewGormGroupRepository(db)
	notifier := &recordNotifier{}

	return &fixture{
		auth:     service.NewAuthService(userRepo, tokens, attachments, 4),
		friends:  service.NewFriendService(friendRepo, userRepo, notifier),
		groups:   service.NewGroupService(groupRepo, userRepo, notifier),
		messages: service.NewMessageService(friendRepo, groupRepo, userRepo, notifier, attachments),
		notifier: notifier,
	}
}

func (f *fixture) register(t *testing.T, email, username string) *domain.User {
	t.Helper()
	user, _, err := f.auth.Register(context.Background(), &domain.RegisterRequest{
		Email:    email,
		Username: username,
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("register %s failed: %v", email, err)
	}
	return user
}

func (f *fixture) befriend(t *testing.T, a, b *domain.User) {
	t.Helper()
	ctx := context.Background()
	request, err := f.friends.SendRequest(ctx, a.ID, b.FriendCode)
	if err != nil {
		t.Fatalf("send request failed: %v", err)
	}
	if err := f.friends.RespondRequest(ctx, b.ID, request.ID, true); err != nil {
		t.Fatalf("respond request failed: %v", err)
	}
}

// --- Auth ---

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "alice")
	if user.FriendCode == "" {
		t.Error("registered user has no friend code")
	}

	logged, tokens, err := f.auth.Login(ctx, &domain.LoginRequest{
		Email:    "Alice@Example.com", // emails are case-insensitive
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID || tokens.AccessToken == "" {
		t.Error("login returned wrong user or empty tokens")
	}

	_, _, err = f.auth.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	_, _, err = f.auth.Register(ctx, &domain.RegisterRequest{
		Email:    "alice@example.com",
		Username: "imposter",
		Password: "secret123",
	})
	if !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.register(t, "alice@example.com", "alice")
	_, tokens, err := f.auth.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := f.auth.Refresh(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, tokens.AccessToken); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for access token, got %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	f.auth.Logout(ctx, user.ID)
	if _, err := f.auth.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected refresh to fail after logout, got %v", err)
	}
}

// --- Friends ---

func TestFriendFlowEmitsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", "alice")
	bob := f.register(t, "bob@example.com", "bob")

	request, err := f.friends.SendRequest(ctx, alice.ID, bob.FriendCode)
	if err != nil {
		t.Fatalf("send request failed: %v", err)
	}

	incoming := f.notifier.find(domain.EventNewFriendRequest)
	if len(incoming) != 1 || incoming[0].toUser != bob.ID {
		t.Fatalf("expected newFriendRequest to bob, got %+v", incoming)
	}

	if err := f.friends.RespondRequest(ctx, bob.ID, request.ID, true); err != nil {
		t.Fatalf("respond failed: %v", err)
	}
	responses := f.notifier.find(domain.EventFriendRequestResponse)
	if len(responses) != 1 || responses[0].toUser != alice.ID {
		t.Fatalf("expected friendRequestResponse to alice, got %+v", responses)
	}
	payload := responses[0].payload.(domain.FriendRequestResponsePayload)
	if !payload.Accepted || payload.ResponderID != bob.ID {
		t.Errorf("unexpected response payload %+v", payload)
	}

	friends, err := f.friends.ListFriends(ctx, alice.ID)
	if err != nil || len(friends) != 1 || friends[0].ID != bob.ID {
		t.Fatalf("ListFriends = %v, %v", friends, err)
	}

	if err := f.friends.RemoveFriend(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("remove friend failed: %v", err)
	}
	removed := f.notifier.find(domain.EventFriendRemoved)
	if len(removed) != 1 || removed[0].toUser != bob.ID {
		t.Errorf("expected friendRemoved to bob, got %+v", removed)
	}
}

func TestFriendRequestGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", "alice")
	bob := f.register(t, "bob@example.com", "bob")

	if _, err := f.friends.SendRequest(ctx, alice.ID, alice.FriendCode); !errors.Is(err, service.ErrSelfRequest) {
		t.Errorf("expected ErrSelfRequest, got %v", err)
	}
	if _, err := f.friends.SendRequest(ctx, alice.ID, "NOSUCH"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	request, _ := f.friends.SendRequest(ctx, alice.ID, bob.FriendCode)
	// Only the receiver may answer.
	if err := f.friends.RespondRequest(ctx, alice.ID, request.ID, true); !errors.Is(err, service.ErrNotReceiver) {
		t.Errorf("expected ErrNotReceiver, got %v", err)
	}

	// While the request is pending, neither direction may open another one.
	if _, err := f.friends.SendRequest(ctx, bob.ID, alice.FriendCode); !errors.Is(err, repository.ErrRequestExists) {
		t.Errorf("expected ErrRequestExists for reverse request, got %v", err)
	}

	if err := f.friends.RespondRequest(ctx, bob.ID, request.ID, true); err != nil {
		t.Fatalf("respond request failed: %v", err)
	}
	if _, err := f.friends.SendRequest(ctx, alice.ID, bob.FriendCode); !errors.Is(err, repository.ErrAlreadyFriends) {
		t.Errorf("expected ErrAlreadyFriends, got %v", err)
	}
}

// --- Groups ---

func TestGroupLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com", "owner")
	m1 := f.register(t, "m1@example.com", "m1")
	m2 := f.register(t, "m2@example.com", "m2")

	group, err := f.groups.Create(ctx, owner.ID, &domain.CreateGroupRequest{
		Name:      "team",
		MemberIDs: []string{m1.ID},
	})
	if err != nil {
		t.Fatalf("create group failed: %v", err)
	}

	created := f.notifier.find(domain.EventGroupCreated)
	if len(created) != 1 || created[0].toUser != m1.ID {
		t.Fatalf("expected groupCreated to the initial member only, got %+v", created)
	}

	if err := f.groups.AddMember(ctx, owner.ID, group.ID, m2.ID); err != nil {
		t.Fatalf("add member failed: %v", err)
	}
	added := f.notifier.find(domain.EventGroupMemberAdded)
	if len(added) != 2 {
		t.Fatalf("expected room + direct notification for new member, got %+v", added)
	}

	// Non-owners cannot manage the group.
	if err := f.groups.AddMember(ctx, m1.ID, group.ID, m2.ID); !errors.Is(err, service.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}

	if err := f.groups.RemoveMember(ctx, owner.ID, group.ID, m2.ID); err != nil {
		t.Fatalf("remove member failed: %v", err)
	}
	kicked := f.notifier.find(domain.EventRemovedFromGroup)
	if len(kicked) != 1 || kicked[0].toUser != m2.ID {
		t.Errorf("expected removedFromGroup to m2, got %+v", kicked)
	}

	if err := f.groups.Leave(ctx, owner.ID, group.ID); !errors.Is(err, service.ErrOwnerCannotLeave) {
		t.Errorf("expected ErrOwnerCannotLeave, got %v", err)
	}
	if err := f.groups.Leave(ctx, m1.ID, group.ID); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	if err := f.groups.Delete(ctx, owner.ID, group.ID); err != nil {
		t.Fatalf("delete group failed: %v", err)
	}
	deleted := f.notifier.find(domain.EventGroupDeleted)
	if len(deleted) != 1 || deleted[0].toUser != owner.ID {
		t.Errorf("expected groupDeleted to the remaining member, got %+v", deleted)
	}
}

// --- Messages ---

func TestDirectMessageRequiresFriendship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", "alice")
	bob := f.register(t, "bob@example.com", "bob")

	req := &domain.SendDirectMessageRequest{Text: "hi"}
	if _, err := f.messages.SendDirect(ctx, alice.ID, bob.ID, req); !errors.Is(err, repository.ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends, got %v", err)
	}

	f.befriend(t, alice, bob)

	payload, err := f.messages.SendDirect(ctx, alice.ID, bob.ID, req)
	if err != nil {
		t.Fatalf("send direct failed: %v", err)
	}
	if payload.SenderName != "alice" || payload.Text != "hi" {
		t.Errorf("unexpected payload %+v", payload)
	}

	// Delivered to the receiver and echoed to the sender's devices.
	delivered := f.notifier.find(domain.EventNewMessage)
	if len(delivered) != 2 {
		t.Fatalf("expected 2 emits, got %+v", delivered)
	}
	targets := map[string]bool{delivered[0].toUser: true, delivered[1].toUser: true}
	if !targets[alice.ID] || !targets[bob.ID] {
		t.Errorf("expected delivery to both sides, got %+v", delivered)
	}

	if _, err := f.messages.SendDirect(ctx, alice.ID, bob.ID, &domain.SendDirectMessageRequest{}); !errors.Is(err, service.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestGroupMessageAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com", "owner")
	member := f.register(t, "member@example.com", "member")
	outsider := f.register(t, "out@example.com", "outsider")

	group, err := f.groups.Create(ctx, owner.ID, &domain.CreateGroupRequest{
		Name:      "team",
		MemberIDs: []string{member.ID},
	})
	if err != nil {
		t.Fatalf("create group failed: %v", err)
	}

	if _, err := f.messages.SendGroup(ctx, outsider.ID, group.ID, &domain.SendGroupMessageRequest{Text: "hi"}); !errors.Is(err, repository.ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}

	if _, err := f.messages.SendGroup(ctx, member.ID, group.ID, &domain.SendGroupMessageRequest{Text: "hi"}); err != nil {
		t.Fatalf("send group message failed: %v", err)
	}
	sent := f.notifier.find(domain.EventNewGroupMessage)
	if len(sent) != 1 || sent[0].toGroup != group.ID {
		t.Fatalf("expected one room emit, got %+v", sent)
	}

	// History clearing is owner only.
	if err := f.messages.ClearGroupHistory(ctx, member.ID, group.ID); !errors.Is(err, service.ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := f.messages.ClearGroupHistory(ctx, owner.ID, group.ID); err != nil {
		t.Fatalf("clear group history failed: %v", err)
	}
	if cleared := f.notifier.find(domain.EventGroupChatHistoryCleared); len(cleared) != 1 {
		t.Errorf("expected one history-cleared emit, got %+v", cleared)
	}
}

func TestMessageWithImageAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", "alice")
	bob := f.register(t, "bob@example.com", "bob")
	f.befriend(t, alice, bob)

	// 1x1 transparent PNG
	image := "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
	payload, err := f.messages.SendDirect(ctx, alice.ID, bob.ID, &domain.SendDirectMessageRequest{Image: image})
	if err != nil {
		t.Fatalf("send with image failed: %v", err)
	}
	if payload.Image == "" {
		t.Error("expected a serving URL in the payload")
	}
	if payload.Image == image {
		t.Error("payload must carry a URL, not the raw data")
	}

	if _, err := f.messages.SendDirect(ctx, alice.ID, bob.ID, &domain.SendDirectMessageRequest{Image: "data:text/plain;base64,aGk="}); !errors.Is(err, service.ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}
