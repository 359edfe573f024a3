package service

import (
	"context"
	"errors"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/pkg/log"
)

// friendServiceImpl implements FriendService.
type friendServiceImpl struct {
	friends  repository.FriendRepository
	users    repository.UserRepository
	notifier Notifier
}

// NewFriendService creates a new friend service.
func NewFriendService(friends repository.FriendRepository, users repository.UserRepository, notifier Notifier) FriendService {
	return &friendServiceImpl{
		friends:  friends,
		users:    users,
		notifier: notifier,
	}
}

// SendRequest creates a pending request to the owner of the friend code and
// notifies them in realtime.
func (s *friendServiceImpl) SendRequest(ctx context.Context, senderID, friendCode string) (*domain.FriendRequest, error) {
	l := log.Ctx(ctx)

	receiver, err := s.users.GetByFriendCode(ctx, friendCode)
	if err != nil {
		return nil, err
	}
	if receiver.ID == senderID {
		return nil, ErrSelfRequest
	}

	if friends, err := s.friends.AreFriends(ctx, senderID, receiver.ID); err != nil {
		return nil, err
	} else if friends {
		return nil, repository.ErrAlreadyFriends
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	model, err := s.friends.CreateRequest(ctx, senderID, receiver.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.EmitToUser(receiver.ID, domain.EventNewFriendRequest, domain.FriendRequestPayload{
		RequestID:  model.ID,
		SenderID:   sender.ID,
		SenderName: sender.Username,
		CreatedAt:  model.CreatedAt,
	})

	l.Info().
		Str(log.FieldUserID, senderID).
		Uint("request_id", model.ID).
		Msg("friend request sent")
	return requestToDomain(model), nil
}

// RespondRequest accepts or rejects a pending request addressed to the
// responder. Accepting also creates the friendship.
func (s *friendServiceImpl) RespondRequest(ctx context.Context, responderID string, requestID uint, accept bool) error {
	request, err := s.friends.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.ReceiverID != responderID {
		return ErrNotReceiver
	}

	status := domain.FriendStatusRejected
	if accept {
		status = domain.FriendStatusAccepted
	}
	if err := s.friends.ResolveRequest(ctx, requestID, status); err != nil {
		return err
	}

	if accept {
		if err := s.friends.CreateFriendship(ctx, request.SenderID, request.ReceiverID); err != nil {
			// The request is already resolved; a duplicate friendship row
			// means another accept raced us and the outcome is the same.
			if !errors.Is(err, repository.ErrAlreadyFriends) {
				return err
			}
		}
	}

	responder, err := s.users.GetByID(ctx, responderID)
	if err != nil {
		return err
	}
	s.notifier.EmitToUser(request.SenderID, domain.EventFriendRequestResponse, domain.FriendRequestResponsePayload{
		RequestID:   request.ID,
		ResponderID: responder.ID,
		Responder:   responder.Username,
		Accepted:    accept,
	})
	return nil
}

// ListPendingRequests lists the pending requests addressed to the user.
func (s *friendServiceImpl) ListPendingRequests(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	models, err := s.friends.ListPendingForReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	requests := make([]domain.FriendRequest, 0, len(models))
	for i := range models {
		requests = append(requests, *requestToDomain(&models[i]))
	}
	return requests, nil
}

// ListFriends returns the user's friends as profiles.
func (s *friendServiceImpl) ListFriends(ctx context.Context, userID string) ([]domain.User, error) {
	ids, err := s.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	models, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	friends := make([]domain.User, 0, len(models))
	for _, m := range models {
		friends = append(friends, domain.User{
			ID:         m.ID,
			Email:      m.Email,
			Username:   m.Username,
			FriendCode: m.FriendCode,
			CreatedAt:  m.CreatedAt,
		})
	}
	return friends, nil
}

// RemoveFriend dissolves the friendship and notifies the removed side so
// their UI drops the conversation.
func (s *friendServiceImpl) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if err := s.friends.DeleteFriendship(ctx, userID, friendID); err != nil {
		return err
	}

	s.notifier.EmitToUser(friendID, domain.EventFriendRemoved, domain.FriendRemovedPayload{
		UserID: userID,
	})

	log.Ctx(ctx).Info().
		Str(log.FieldUserID, userID).
		Str("friend_id", friendID).
		Msg("friendship removed")
	return nil
}

func requestToDomain(m *domain.FriendRequestModel) *domain.FriendRequest {
	return &domain.FriendRequest{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
}
