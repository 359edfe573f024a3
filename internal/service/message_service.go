package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/pkg/log"
)

// messageServiceImpl implements MessageService. Message bodies exist only
// on the wire; the database knows friendships and groups, never messages.
type messageServiceImpl struct {
	friends     repository.FriendRepository
	groups      repository.GroupRepository
	users       repository.UserRepository
	notifier    Notifier
	attachments *AttachmentStore
}

// NewMessageService creates a new message service.
func NewMessageService(
	friends repository.FriendRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	notifier Notifier,
	attachments *AttachmentStore,
) MessageService {
	return &messageServiceImpl{
		friends:     friends,
		groups:      groups,
		users:       users,
		notifier:    notifier,
		attachments: attachments,
	}
}

// SendDirect delivers a message to every device of the receiver and echoes
// it back to the sender's other devices. Friends only.
func (s *messageServiceImpl) SendDirect(ctx context.Context, senderID, receiverID string, req *domain.SendDirectMessageRequest) (*domain.DirectMessagePayload, error) {
	if req.Text == "" && req.Image == "" {
		return nil, ErrEmptyMessage
	}

	friends, err := s.friends.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !friends {
		return nil, repository.ErrNotFriends
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, "messages/"+senderID, req.Image)
	if err != nil {
		return nil, err
	}

	payload := &domain.DirectMessagePayload{
		ID:         uuid.New().String(),
		SenderID:   sender.ID,
		SenderName: sender.Username,
		ReceiverID: receiverID,
		Text:       req.Text,
		Image:      imageURL,
		CreatedAt:  time.Now().UTC(),
	}

	s.notifier.EmitToUser(receiverID, domain.EventNewMessage, payload)
	s.notifier.EmitToUser(senderID, domain.EventNewMessage, payload)

	log.Ctx(ctx).Debug().
		Str(log.FieldUserID, senderID).
		Str("receiver_id", receiverID).
		Bool("online", s.notifier.IsOnline(receiverID)).
		Msg("direct message delivered")
	return payload, nil
}

// SendGroup delivers a message to the group's room. Members only.
func (s *messageServiceImpl) SendGroup(ctx context.Context, senderID, groupID string, req *domain.SendGroupMessageRequest) (*domain.GroupMessagePayload, error) {
	if req.Text == "" && req.Image == "" {
		return nil, ErrEmptyMessage
	}

	if err := s.requireMember(ctx, groupID, senderID); err != nil {
		return nil, err
	}
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, "messages/"+groupID, req.Image)
	if err != nil {
		return nil, err
	}

	payload := &domain.GroupMessagePayload{
		ID:         uuid.New().String(),
		GroupID:    groupID,
		SenderID:   sender.ID,
		SenderName: sender.Username,
		Text:       req.Text,
		Image:      imageURL,
		CreatedAt:  time.Now().UTC(),
	}

	s.notifier.EmitToGroup(groupID, domain.EventNewGroupMessage, payload)
	return payload, nil
}

// ClearDirectHistory tells both sides to wipe the conversation from their
// local stores. There is nothing server-side to delete.
func (s *messageServiceImpl) ClearDirectHistory(ctx context.Context, userID, peerID string) error {
	friends, err := s.friends.AreFriends(ctx, userID, peerID)
	if err != nil {
		return err
	}
	if !friends {
		return repository.ErrNotFriends
	}

	payload := domain.HistoryClearedPayload{UserID: userID}
	s.notifier.EmitToUser(peerID, domain.EventChatHistoryCleared, payload)
	s.notifier.EmitToUser(userID, domain.EventChatHistoryCleared, domain.HistoryClearedPayload{UserID: peerID})
	return nil
}

// ClearGroupHistory tells the group room to wipe local history. Owner only.
func (s *messageServiceImpl) ClearGroupHistory(ctx context.Context, userID, groupID string) error {
	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if model.OwnerID != userID {
		return ErrNotOwner
	}

	s.notifier.EmitToGroup(groupID, domain.EventGroupChatHistoryCleared, domain.HistoryClearedPayload{
		GroupID: groupID,
	})
	return nil
}

// DeleteGroupMessage retracts one message in the room. Sender identity is
// not checked server-side: with no message store there is nothing to check
// against, the frontend only offers deletion on own messages.
func (s *messageServiceImpl) DeleteGroupMessage(ctx context.Context, userID, groupID, messageID string) error {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.notifier.EmitToGroup(groupID, domain.EventGroupMessageDeleted, domain.GroupMessageDeletedPayload{
		GroupID:   groupID,
		MessageID: messageID,
	})
	return nil
}

func (s *messageServiceImpl) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotMember
	}
	return nil
}

// storeImage persists an optional base64 image and returns its serving URL.
func (s *messageServiceImpl) storeImage(ctx context.Context, prefix, dataURL string) (string, error) {
	if dataURL == "" {
		return "", nil
	}
	key, err := s.attachments.SaveImage(ctx, prefix, dataURL)
	if err != nil {
		return "", err
	}
	return s.attachments.URLFor(ctx, key)
}
