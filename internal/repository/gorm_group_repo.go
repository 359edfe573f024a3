package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nimbuschat/nimbus/internal/domain"
)

// GormGroupRepository implements GroupRepository using GORM.
type GormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository creates a new GORM-backed group repository.
func NewGormGroupRepository(db *gorm.DB) *GormGroupRepository {
	return &GormGroupRepository{db: db}
}

// Create inserts the group, its owner membership, and any initial members
// in one transaction. The owner must not appear in memberIDs.
func (r *GormGroupRepository) Create(ctx context.Context, group *domain.GroupModel, memberIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		members := []domain.GroupMemberModel{
			{GroupID: group.ID, UserID: group.OwnerID, Role: domain.GroupRoleOwner},
		}
		for _, id := range memberIDs {
			if id == group.OwnerID {
				continue
			}
			members = append(members, domain.GroupMemberModel{
				GroupID: group.ID,
				UserID:  id,
				Role:    domain.GroupRoleMember,
			})
		}
		return tx.Create(&members).Error
	})
}

// GetByID retrieves a group by id.
func (r *GormGroupRepository) GetByID(ctx context.Context, id string) (*domain.GroupModel, error) {
	var model domain.GroupModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &model, nil
}

// Update applies the given column updates to one group.
func (r *GormGroupRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.GroupModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// Delete removes the group and all of its membership rows.
func (r *GormGroupRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&domain.GroupMemberModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.GroupModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrGroupNotFound
		}
		return nil
	})
}

// AddMember inserts a membership row.
func (r *GormGroupRepository) AddMember(ctx context.Context, groupID, userID, role string) error {
	member := domain.GroupMemberModel{GroupID: groupID, UserID: userID, Role: role}
	if err := r.db.WithContext(ctx).Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMember
		}
		return err
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *GormGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&domain.GroupMemberModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotMember
	}
	return nil
}

// IsMember checks whether the user belongs to the group.
func (r *GormGroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.GroupMemberModel{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListMemberIDs returns the user ids of the group's members.
func (r *GormGroupRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.GroupMemberModel{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListForUser returns the groups the user is a member of.
func (r *GormGroupRepository) ListForUser(ctx context.Context, userID string) ([]domain.GroupModel, error) {
	var models []domain.GroupModel
	err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = chat_groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return models, nil
}
