package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/pkg/log"
)

// groupServiceImpl implements GroupService.
type groupServiceImpl struct {
	groups   repository.GroupRepository
	users    repository.UserRepository
	notifier Notifier
}

// NewGroupService creates a new group service.
func NewGroupService(groups repository.GroupRepository, users repository.UserRepository, notifier Notifier) GroupService {
	return &groupServiceImpl{
		groups:   groups,
		users:    users,
		notifier: notifier,
	}
}

// Create makes a new group owned by ownerID. Initial members are notified
// individually; none of them has joined the group room yet.
func (s *groupServiceImpl) Create(ctx context.Context, ownerID string, req *domain.CreateGroupRequest) (*domain.Group, error) {
	model := &domain.GroupModel{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     ownerID,
	}
	if err := s.groups.Create(ctx, model, req.MemberIDs); err != nil {
		return nil, err
	}

	group, err := s.toDomain(ctx, model)
	if err != nil {
		return nil, err
	}

	for _, memberID := range group.MemberIDs {
		if memberID == ownerID {
			continue
		}
		s.notifier.EmitToUser(memberID, domain.EventGroupCreated, group)
	}

	log.Ctx(ctx).Info().
		Str(log.FieldGroupID, group.ID).
		Str(log.FieldUserID, ownerID).
		Int("members", len(group.MemberIDs)).
		Msg("group created")
	return group, nil
}

// Get returns the group, members only.
func (s *groupServiceImpl) Get(ctx context.Context, userID, groupID string) (*domain.Group, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.toDomain(ctx, model)
}

// ListForUser returns the groups the user belongs to.
func (s *groupServiceImpl) ListForUser(ctx context.Context, userID string) ([]domain.Group, error) {
	models, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(models))
	for i := range models {
		group, err := s.toDomain(ctx, &models[i])
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

// Update changes group metadata, owner only.
func (s *groupServiceImpl) Update(ctx context.Context, userID, groupID string, req *domain.UpdateGroupRequest) (*domain.Group, error) {
	if err := s.requireOwner(ctx, groupID, userID); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	if len(fields) > 0 {
		if err := s.groups.Update(ctx, groupID, fields); err != nil {
			return nil, err
		}
	}

	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group, err := s.toDomain(ctx, model)
	if err != nil {
		return nil, err
	}

	s.notifier.EmitToGroup(groupID, domain.EventGroupUpdated, group)
	return group, nil
}

// Delete removes the group, owner only. Subscribed members see the event;
// the frontend leaves the room in response.
func (s *groupServiceImpl) Delete(ctx context.Context, userID, groupID string) error {
	if err := s.requireOwner(ctx, groupID, userID); err != nil {
		return err
	}

	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	memberIDs, err := s.groups.ListMemberIDs(ctx, groupID)
	if err != nil {
		return err
	}

	if err := s.groups.Delete(ctx, groupID); err != nil {
		return err
	}

	payload := domain.GroupDeletedPayload{GroupID: groupID, GroupName: model.Name}
	for _, memberID := range memberIDs {
		s.notifier.EmitToUser(memberID, domain.EventGroupDeleted, payload)
	}

	log.Ctx(ctx).Info().Str(log.FieldGroupID, groupID).Msg("group deleted")
	return nil
}

// AddMember adds a user to the group, owner only. The room hears about the
// new member; the user themselves is told directly since they are not in
// the room yet.
func (s *groupServiceImpl) AddMember(ctx context.Context, actorID, groupID, userID string) error {
	if err := s.requireOwner(ctx, groupID, actorID); err != nil {
		return err
	}
	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.groups.AddMember(ctx, groupID, userID, domain.GroupRoleMember); err != nil {
		return err
	}

	payload := domain.GroupMemberPayload{
		GroupID:   groupID,
		GroupName: model.Name,
		UserID:    userID,
	}
	s.notifier.EmitToGroup(groupID, domain.EventGroupMemberAdded, payload)
	s.notifier.EmitToUser(userID, domain.EventGroupMemberAdded, payload)
	return nil
}

// RemoveMember kicks a member, owner only. The room and the removed user
// get different events; the latter triggers the frontend to drop the group.
func (s *groupServiceImpl) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	if err := s.requireOwner(ctx, groupID, actorID); err != nil {
		return err
	}
	if userID == actorID {
		return ErrOwnerCannotLeave
	}
	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	payload := domain.GroupMemberPayload{
		GroupID:   groupID,
		GroupName: model.Name,
		UserID:    userID,
	}
	s.notifier.EmitToGroup(groupID, domain.EventGroupMemberRemoved, payload)
	s.notifier.EmitToUser(userID, domain.EventRemovedFromGroup, payload)
	return nil
}

// Leave removes the caller from the group. The owner cannot leave; they
// delete the group instead.
func (s *groupServiceImpl) Leave(ctx context.Context, userID, groupID string) error {
	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if model.OwnerID == userID {
		return ErrOwnerCannotLeave
	}

	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.notifier.EmitToGroup(groupID, domain.EventGroupMemberLeft, domain.GroupMemberPayload{
		GroupID:   groupID,
		GroupName: model.Name,
		UserID:    userID,
	})
	return nil
}

func (s *groupServiceImpl) requireMember(ctx context.Context, groupID, userID string) error {
	ok, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotMember
	}
	return nil
}

func (s *groupServiceImpl) requireOwner(ctx context.Context, groupID, userID string) error {
	model, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if model.OwnerID != userID {
		return ErrNotOwner
	}
	return nil
}

func (s *groupServiceImpl) toDomain(ctx context.Context, model *domain.GroupModel) (*domain.Group, error) {
	memberIDs, err := s.groups.ListMemberIDs(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Group{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		OwnerID:     model.OwnerID,
		MemberIDs:   memberIDs,
		CreatedAt:   model.CreatedAt,
	}, nil
}
