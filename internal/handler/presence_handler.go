package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbuschat/nimbus/internal/presence"
	"github.com/nimbuschat/nimbus/pkg/middleware"
	"github.com/nimbuschat/nimbus/pkg/response"
)

// PresenceHandler exposes the realtime presence view over HTTP, for
// clients that render before their WebSocket is up.
type PresenceHandler struct {
	presence *presence.Service
	mw       *middleware.AuthMiddleware
}

func NewPresenceHandler(p *presence.Service, mw *middleware.AuthMiddleware) *PresenceHandler {
	return &PresenceHandler{presence: p, mw: mw}
}

// RegisterRoutes registers presence routes.
func (h *PresenceHandler) RegisterRoutes(api *gin.RouterGroup) {
	p := api.Group("/presence")
	p.Use(h.mw.RequireAuth())
	{
		p.GET("/online", h.OnlineUsers)
		p.GET("/users/:userId", h.UserStatus)
		p.GET("/groups/:groupId", h.GroupRoomSize)
	}
}

// OnlineUsers returns the ids of every online user.
func (h *PresenceHandler) OnlineUsers(c *gin.Context) {
	response.Success(c, gin.H{"online": h.presence.OnlineUsers()})
}

// UserStatus reports whether one user is online.
func (h *PresenceHandler) UserStatus(c *gin.Context) {
	userID := c.Param("userId")
	response.Success(c, gin.H{
		"userId": userID,
		"online": h.presence.IsOnline(userID),
	})
}

// GroupRoomSize reports how many connections are subscribed to the
// group's room on this instance.
func (h *PresenceHandler) GroupRoomSize(c *gin.Context) {
	groupID := c.Param("groupId")
	response.Success(c, gin.H{
		"groupId": groupID,
		"members": h.presence.GroupRoomSize(groupID),
	})
}
