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

// MessageHandler accepts messages over HTTP and fans them out over the
// WebSocket layer.
type MessageHandler struct {
	messages service.MessageService
	mw       *middleware.AuthMiddleware
}

func NewMessageHandler(messages service.MessageService, mw *middleware.AuthMiddleware) *MessageHandler {
	return &MessageHandler{messages: messages, mw: mw}
}

// RegisterRoutes registers messaging routes.
func (h *MessageHandler) RegisterRoutes(api *gin.RouterGroup) {
	messages := api.Group("/messages")
	messages.Use(h.mw.RequireAuth())
	{
		messages.POST("/direct/:userId", h.SendDirect)
		messages.DELETE("/direct/:userId", h.ClearDirect)
		messages.POST("/group/:groupId", h.SendGroup)
		messages.DELETE("/group/:groupId", h.ClearGroup)
		messages.DELETE("/group/:groupId/:messageId", h.DeleteGroupMessage)
	}
}

// SendDirect delivers a direct message to a friend.
func (h *MessageHandler) SendDirect(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.SendDirectMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payload, err := h.messages.SendDirect(ctx, middleware.GetUserID(c), c.Param("userId"), &req)
	if err != nil {
		h.writeError(c, err, "send direct message failed")
		return
	}
	response.Created(c, payload)
}

// ClearDirect asks both sides to clear the conversation.
func (h *MessageHandler) ClearDirect(c *gin.Context) {
	err := h.messages.ClearDirectHistory(c.Request.Context(), middleware.GetUserID(c), c.Param("userId"))
	if err != nil {
		h.writeError(c, err, "clear direct history failed")
		return
	}
	response.Success(c, gin.H{"message": "history cleared"})
}

// SendGroup delivers a message to a group room.
func (h *MessageHandler) SendGroup(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.SendGroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	payload, err := h.messages.SendGroup(ctx, middleware.GetUserID(c), c.Param("groupId"), &req)
	if err != nil {
		h.writeError(c, err, "send group message failed")
		return
	}
	response.Created(c, payload)
}

// ClearGroup asks the room to clear group history, owner only.
func (h *MessageHandler) ClearGroup(c *gin.Context) {
	err := h.messages.ClearGroupHistory(c.Request.Context(), middleware.GetUserID(c), c.Param("groupId"))
	if err != nil {
		h.writeError(c, err, "clear group history failed")
		return
	}
	response.Success(c, gin.H{"message": "history cleared"})
}

// DeleteGroupMessage retracts one message in the room.
func (h *MessageHandler) DeleteGroupMessage(c *gin.Context) {
	err := h.messages.DeleteGroupMessage(c.Request.Context(), middleware.GetUserID(c), c.Param("groupId"), c.Param("messageId"))
	if err != nil {
		h.writeError(c, err, "delete group message failed")
		return
	}
	response.Success(c, gin.H{"message": "message deleted"})
}

func (h *MessageHandler) writeError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		response.BadRequest(c, "message needs text or an image")
	case errors.Is(err, service.ErrInvalidImage):
		response.BadRequest(c, "invalid image data")
	case errors.Is(err, repository.ErrNotFriends):
		response.Forbidden(c, "not friends with this user")
	case errors.Is(err, repository.ErrNotMember):
		response.Forbidden(c, "not a member of this group")
	case errors.Is(err, repository.ErrGroupNotFound):
		response.NotFound(c, "group not found")
	case errors.Is(err, repository.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, service.ErrNotOwner):
		response.Forbidden(c, "only the owner can do this")
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Msg(logMsg)
		response.InternalError(c, "message operation failed")
	}
}
