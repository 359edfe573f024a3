package hub

import (
	"encoding/json"
	"sync"

	"github.com/nimbuschat/nimbus/internal/config"
	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/pkg/log"
)

// Hub owns the live WebSocket clients and pushes frames onto their send
// queues. It knows nothing about users or rooms; the presence layer decides
// which connection ids an event targets.
//
// Registration is synchronous under the mutex, not funneled through a
// channel, so a caller that registers a client and then broadcasts is
// guaranteed the new client sees the broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	cfg     config.WebSocketConfig
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		cfg:     cfg,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	log.L().Debug().Str(log.FieldConnID, client.ID).Msg("client registered")
}

// Unregister removes the client and closes its send queue, which stops the
// write pump. Safe to call more than once for the same id.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
		close(client.Send)
	}
	h.mu.Unlock()
	if ok {
		log.L().Debug().Str(log.FieldConnID, connID).Msg("client unregistered")
	}
}

// EmitTo marshals the event once and queues it on every listed connection.
// Connections that are gone, or whose queue is full, are skipped; delivery
// is fire-and-forget by contract.
func (h *Hub) EmitTo(connIDs []string, event domain.EventKind, payload interface{}) {
	env, err := domain.NewEnvelope(event, payload)
	if err != nil {
		log.L().Error().Err(err).Str(log.FieldEvent, string(event)).Msg("marshal event payload")
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.L().Error().Err(err).Str(log.FieldEvent, string(event)).Msg("marshal event envelope")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range connIDs {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.L().Warn().
				Str(log.FieldConnID, id).
				Str(log.FieldEvent, string(event)).
				Msg("send queue full, frame dropped")
		}
	}
}

// Len returns the number of live clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. WebSocket connections are hijacked from
// the HTTP server, so its Shutdown never closes them; the main calls this
// first. Closing the send queue stops the write pump, which closes the
// underlying connection and unblocks the read pump.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.Send)
	}
	h.mu.Unlock()
	log.L().Info().Msg("hub closed")
}
