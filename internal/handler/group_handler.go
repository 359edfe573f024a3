package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/internal/service"
	"github.com/nimbuschat/nimbus/pkg/log"
	"github.com/nimbuschat/nimbus/pkg/middleware"
	"github.com/nimbuschat/nimbus/pkg/response"
)

// GroupHandler handles group lifecycle and membership.
type GroupHandler struct {
	groups service.GroupService
	mw     *middleware.AuthMiddleware
}

func NewGroupHandler(groups service.GroupService, mw *middleware.AuthMiddleware) *GroupHandler {
	return &GroupHandler{groups: groups, mw: mw}
}

// RegisterRoutes registers group routes.
func (h *GroupHandler) RegisterRoutes(api *gin.RouterGroup) {
	groups := api.Group("/groups")
	groups.Use(h.mw.RequireAuth())
	{
		groups.GET("", h.List)
		groups.POST("", h.Create)
		groups.GET("/:groupId", h.Get)
		groups.PUT("/:groupId", h.Update)
		groups.DELETE("/:groupId", h.Delete)
		groups.POST("/:groupId/members", h.AddMember)
		groups.DELETE("/:groupId/members/:userId", h.RemoveMember)
		groups.POST("/:groupId/leave", h.Leave)
	}
}

// List returns the caller's groups.
func (h *GroupHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	groups, err := h.groups.ListForUser(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("list groups failed")
		response.InternalError(c, "failed to list groups")
		return
	}
	response.Success(c, groups)
}

// Create makes a new group.
func (h *GroupHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.Create(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("create group failed")
		response.InternalError(c, "failed to create group")
		return
	}
	response.Created(c, group)
}

// Get returns one group.
func (h *GroupHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.groups.Get(ctx, middleware.GetUserID(c), c.Param("groupId"))
	if err != nil {
		h.writeError(c, err, "get group failed")
		return
	}
	response.Success(c, group)
}

// Update changes group metadata.
func (h *GroupHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.groups.Update(ctx, middleware.GetUserID(c), c.Param("groupId"), &req)
	if err != nil {
		h.writeError(c, err, "update group failed")
		return
	}
	response.Success(c, group)
}

// Delete removes a group.
func (h *GroupHandler) Delete(c *gin.Context) {
	err := h.groups.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("groupId"))
	if err != nil {
		h.writeError(c, err, "delete group failed")
		return
	}
	response.Success(c, gin.H{"message": "group deleted"})
}

// AddMember adds a user to a group.
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req domain.AddGroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err := h.groups.AddMember(c.Request.Context(), middleware.GetUserID(c), c.Param("groupId"), req.UserID)
	if err != nil {
		h.writeError(c, err, "add group member failed")
		return
	}
	response.Success(c, gin.H{"message": "member added"})
}

// RemoveMember kicks a member from a group.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	err := h.groups.RemoveMember(c.Request.Context(), middleware.GetUserID(c), c.Param("groupId"), c.Param("userId"))
	if err != nil {
		h.writeError(c, err, "remove group member failed")
		return
	}
	response.Success(c, gin.H{"message": "member removed"})
}

// Leave removes the caller from a group.
func (h *GroupHandler) Leave(c *gin.Context) {
	err := h.groups.Leave(c.Request.Context(), middleware.GetUserID(c), c.Param("groupId"))
	if err != nil {
		h.writeError(c, err, "leave group failed")
		return
	}
	response.Success(c, gin.H{"message": "left group"})
}

func (h *GroupHandler) writeError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, repository.ErrGroupNotFound):
		response.NotFound(c, "group not found")
	case errors.Is(err, repository.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, repository.ErrNotMember):
		response.Forbidden(c, "not a member of this group")
	case errors.Is(err, repository.ErrAlreadyMember):
		response.Conflict(c, "already a member of this group")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, "only the owner can do this")
	case errors.Is(err, service.ErrOwnerCannotLeave):
		response.BadRequest(c, "the owner cannot leave the group")
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg(logMsg)
		response.InternalError(c, "group operation failed")
	}
}
