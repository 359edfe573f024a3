package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/internal/service"
	"github.com/nimbuschat/nimbus/pkg/log"
	"github.com/nimbuschat/nimbus/pkg/middleware"
	"github.com/nimbuschat/nimbus/pkg/response"
)

// FriendHandler handles friend requests and friendships.
type FriendHandler struct {
	friends service.FriendService
	mw      *middleware.AuthMiddleware
}

func NewFriendHandler(friends service.FriendService, mw *middleware.AuthMiddleware) *FriendHandler {
	return &FriendHandler{friends: friends, mw: mw}
}

// RegisterRoutes registers friend routes.
func (h *FriendHandler) RegisterRoutes(api *gin.RouterGroup) {
	friends := api.Group("/friends")
	friends.Use(h.mw.RequireAuth())
	{
		friends.GET("", h.List)
		friends.DELETE("/:userId", h.Remove)
		friends.GET("/requests", h.ListRequests)
		friends.POST("/requests", h.SendRequest)
		friends.POST("/requests/:requestId", h.RespondRequest)
	}
}

// List returns the caller's friends.
func (h *FriendHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	friends, err := h.friends.ListFriends(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("list friends failed")
		response.InternalError(c, "failed to list friends")
		return
	}
	response.Success(c, friends)
}

// Remove dissolves a friendship.
func (h *FriendHandler) Remove(c *gin.Context) {
	ctx := c.Request.Context()
	err := h.friends.RemoveFriend(ctx, middleware.GetUserID(c), c.Param("userId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFriends) {
			response.NotFound(c, "not friends with this user")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("remove friend failed")
		response.InternalError(c, "failed to remove friend")
		return
	}
	response.Success(c, gin.H{"message": "friend removed"})
}

// ListRequests returns pending requests addressed to the caller.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	ctx := c.Request.Context()
	requests, err := h.friends.ListPendingRequests(ctx, middleware.GetUserID(c))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("list friend requests failed")
		response.InternalError(c, "failed to list friend requests")
		return
	}
	response.Success(c, requests)
}

// SendRequest sends a friend request by friend code.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	request, err := h.friends.SendRequest(ctx, middleware.GetUserID(c), req.FriendCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			response.NotFound(c, "no user with this friend code")
		case errors.Is(err, service.ErrSelfRequest):
			response.BadRequest(c, "cannot befriend yourself")
		case errors.Is(err, repository.ErrAlreadyFriends):
			response.Conflict(c, "already friends")
		case errors.Is(err, repository.ErrRequestExists):
			response.Conflict(c, "request already pending")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("send friend request failed")
			response.InternalError(c, "failed to send friend request")
		}
		return
	}
	response.Created(c, request)
}

// RespondRequest accepts or rejects a pending request.
func (h *FriendHandler) RespondRequest(c *gin.Context) {
	ctx := c.Request.Context()
	requestID, err := strconv.ParseUint(c.Param("requestId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid request id")
		return
	}

	var req domain.RespondFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err = h.friends.RespondRequest(ctx, middleware.GetUserID(c), uint(requestID), req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRequestNotFound):
			response.NotFound(c, "friend request not found")
		case errors.Is(err, service.ErrNotReceiver):
			response.Forbidden(c, "not your request to answer")
		default:
			log.Ctx(ctx).Error().Err(err).Msg("respond friend request failed")
			response.InternalError(c, "failed to respond to friend request")
		}
		return
	}
	response.Success(c, gin.H{"message": "request resolved"})
}
