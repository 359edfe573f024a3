package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nimbuschat/nimbus/internal/config"
	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/hub"
	"github.com/nimbuschat/nimbus/internal/presence"
	"github.com/nimbuschat/nimbus/pkg/jwt"
	"github.com/nimbuschat/nimbus/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades HTTP requests to WebSocket connections and dispatches
// inbound events.
type WSHandler struct {
	hub      *hub.Hub
	presence *presence.Service
	tokens   *jwt.Manager
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, p *presence.Service, tokens *jwt.Manager, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		presence: p,
		tokens:   tokens,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket performs the upgrade and runs the connect sequence. The
// user identity comes from the handshake and never changes afterwards; a
// handshake without identity yields an anonymous connection that receives
// broadcasts but never appears in presence.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID, ok := h.identify(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.L().Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), userID, h.hub, conn, h.wsCfg)

	// Register with the hub before presence so the new connection receives
	// its own snapshot broadcast.
	h.hub.Register(client)
	h.presence.HandleConnect(client.ID, client.UserID)

	go client.WritePump()
	go client.ReadPump(h.handleMessage, h.handleClose)
}

// identify resolves the connecting user. By default the userId query
// parameter is trusted as-is; with require_token enabled the identity comes
// from a validated access token instead.
func (h *WSHandler) identify(c *gin.Context) (string, bool) {
	if !h.wsCfg.RequireToken {
		return c.Query("userId"), true
	}

	claims, err := h.tokens.ValidateToken(c.Query("token"))
	if err != nil || claims.Type != "access" {
		return "", false
	}
	return claims.UserID, true
}

func (h *WSHandler) handleClose(client *hub.Client) {
	// Presence teardown first: the departing connection is then already
	// absent from the snapshot's recipient set.
	h.presence.HandleDisconnect(client.ID)
	h.hub.Unregister(client.ID)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		client.SendEvent(domain.EventError, domain.ErrorPayload{
			Code:    domain.ErrCodeBadRequest,
			Message: "invalid message format",
		})
		return
	}

	switch env.Event {
	case domain.EventJoinGroup:
		var payload domain.GroupRoomPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.GroupID == "" {
			client.SendEvent(domain.EventError, domain.ErrorPayload{
				Code:    domain.ErrCodeBadRequest,
				Message: "invalid joinGroup payload",
			})
			return
		}
		h.presence.JoinGroup(client.ID, payload.GroupID)

	case domain.EventLeaveGroup:
		var payload domain.GroupRoomPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.GroupID == "" {
			client.SendEvent(domain.EventError, domain.ErrorPayload{
				Code:    domain.ErrCodeBadRequest,
				Message: "invalid leaveGroup payload",
			})
			return
		}
		h.presence.LeaveGroup(client.ID, payload.GroupID)

	case domain.EventPing:
		client.SendEvent(domain.EventPong, nil)

	default:
		client.SendEvent(domain.EventError, domain.ErrorPayload{
			Code:    domain.ErrCodeBadRequest,
			Message: "unknown event",
		})
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *WSHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.HandleWebSocket)
}
