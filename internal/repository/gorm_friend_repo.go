package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nimbuschat/nimbus/internal/domain"
)

// GormFriendRepository implements FriendRepository using GORM.
type GormFriendRepository struct {
	db *gorm.DB
}

// NewGormFriendRepository creates a new GORM-backed friend repository.
func NewGormFriendRepository(db *gorm.DB) *GormFriendRepository {
	return &GormFriendRepository{db: db}
}

// CreateRequest inserts a pending friend request. A pending request in
// either direction between the pair counts as existing.
func (r *GormFriendRepository) CreateRequest(ctx context.Context, senderID, receiverID string) (*domain.FriendRequestModel, error) {
	var model *domain.FriendRequestModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&domain.FriendRequestModel{}).
			Where("status = ?", domain.FriendStatusPending).
			Where(
				tx.Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
					Or("sender_id = ? AND receiver_id = ?", receiverID, senderID),
			).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrRequestExists
		}

		model = &domain.FriendRequestModel{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     domain.FriendStatusPending,
		}
		if err := tx.Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRequestExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

// GetRequest retrieves a friend request by id.
func (r *GormFriendRepository) GetRequest(ctx context.Context, id uint) (*domain.FriendRequestModel, error) {
	var model domain.FriendRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &model, nil
}

// ListPendingForReceiver lists the pending requests addressed to a user,
// newest first.
func (r *GormFriendRepository) ListPendingForReceiver(ctx context.Context, receiverID string) ([]domain.FriendRequestModel, error) {
	var models []domain.FriendRequestModel
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", receiverID, domain.FriendStatusPending).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return models, nil
}

// ResolveRequest moves a pending request to accepted or rejected. Requests
// that are not pending anymore cannot be resolved again.
func (r *GormFriendRepository) ResolveRequest(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&domain.FriendRequestModel{}).
		Where("id = ? AND status = ?", id, domain.FriendStatusPending).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// CreateFriendship inserts both direction rows in one transaction.
func (r *GormFriendRepository) CreateFriendship(ctx context.Context, userID, friendID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := []domain.FriendshipModel{
			{UserID: userID, FriendID: friendID},
			{UserID: friendID, FriendID: userID},
		}
		if err := tx.Create(&rows).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyFriends
			}
			return err
		}
		return nil
	})
}

// DeleteFriendship removes both direction rows in one transaction.
func (r *GormFriendRepository) DeleteFriendship(ctx context.Context, userID, friendID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
				userID, friendID, friendID, userID).
			Delete(&domain.FriendshipModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFriends
		}
		return nil
	})
}

// AreFriends checks whether a friendship row exists between the pair.
func (r *GormFriendRepository) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FriendshipModel{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFriendIDs returns the ids of a user's friends.
func (r *GormFriendRepository) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.FriendshipModel{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
