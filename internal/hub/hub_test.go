package hub_test

import (
	"encoding/json"
	"testing"

	"github.com/nimbuschat/nimbus/internal/config"
	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/hub"
)

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{SendBuffer: 4}
}

// The pumps never run in these tests; frames are read straight off the
// send queue.
func newTestClient(id string, h *hub.Hub) *hub.Client {
	return hub.NewClient(id, "", h, nil, testWSConfig())
}

func receiveEnvelope(t *testing.T, c *hub.Client) domain.Envelope {
	t.Helper()
	select {
	case data := <-c.Send:
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("invalid frame on send queue: %v", err)
		}
		return env
	default:
		t.Fatal("expected a frame on the send queue")
		return domain.Envelope{}
	}
}

func TestEmitToDeliversToListedClients(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	c1 := newTestClient("c1", h)
	c2 := newTestClient("c2", h)
	c3 := newTestClient("c3", h)
	h.Register(c1)
	h.Register(c2)
	h.Register(c3)

	h.EmitTo([]string{"c1", "c3"}, domain.EventOnlineUsers, []string{"alice"})

	for _, c := range []*hub.Client{c1, c3} {
		env := receiveEnvelope(t, c)
		if env.Event != domain.EventOnlineUsers {
			t.Errorf("client %s: expected %s, got %s", c.ID, domain.EventOnlineUsers, env.Event)
		}
		var online []string
		if err := json.Unmarshal(env.Data, &online); err != nil || len(online) != 1 || online[0] != "alice" {
			t.Errorf("client %s: unexpected payload %s", c.ID, env.Data)
		}
	}

	select {
	case <-c2.Send:
		t.Error("c2 was not targeted but received a frame")
	default:
	}
}

func TestEmitToUnknownClientIsNoOp(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	h.EmitTo([]string{"ghost"}, domain.EventPong, nil)
	if h.Len() != 0 {
		t.Errorf("expected no clients, got %d", h.Len())
	}
}

func TestEmitToFullQueueDropsFrame(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	c := newTestClient("c1", h)
	h.Register(c)

	// Fill the queue past capacity; extra frames must be dropped without
	// blocking the caller.
	for i := 0; i < cap(c.Send)+3; i++ {
		h.EmitTo([]string{"c1"}, domain.EventPong, nil)
	}
	if len(c.Send) != cap(c.Send) {
		t.Errorf("expected full queue, got %d of %d", len(c.Send), cap(c.Send))
	}
}

func TestUnregisterClosesSendQueue(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	c := newTestClient("c1", h)
	h.Register(c)

	h.Unregister("c1")
	if _, open := <-c.Send; open {
		t.Error("send queue should be closed after unregister")
	}
	if h.Len() != 0 {
		t.Errorf("expected no clients, got %d", h.Len())
	}

	// Second unregister for the same id must not panic on a closed queue.
	h.Unregister("c1")

	// Emitting to a removed client is a no-op.
	h.EmitTo([]string{"c1"}, domain.EventPong, nil)
}

func TestCloseDisconnectsAllClients(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	c1 := newTestClient("c1", h)
	c2 := newTestClient("c2", h)
	h.Register(c1)
	h.Register(c2)

	h.Close()
	if h.Len() != 0 {
		t.Errorf("expected no clients after close, got %d", h.Len())
	}
	for _, c := range []*hub.Client{c1, c2} {
		if _, open := <-c.Send; open {
			t.Errorf("client %s send queue still open after close", c.ID)
		}
	}

	// A late unregister from a closing read pump must not panic.
	h.Unregister("c1")
}

func TestSendEventAfterCloseIsNoOp(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	c := newTestClient("c1", h)
	h.Register(c)
	h.Close()

	// A read pump can still dispatch a reply while the hub shuts down; the
	// send must not hit the closed queue.
	c.SendEvent(domain.EventPong, nil)
}

func TestSendEventQueuesEnvelope(t *testing.T) {
	h := hub.NewHub(testWSConfig())
	c := newTestClient("c1", h)
	h.Register(c)

	c.SendEvent(domain.EventError, domain.ErrorPayload{Code: domain.ErrCodeBadRequest, Message: "nope"})

	env := receiveEnvelope(t, c)
	if env.Event != domain.EventError {
		t.Fatalf("expected error event, got %s", env.Event)
	}
	var payload domain.ErrorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("invalid error payload: %v", err)
	}
	if payload.Code != domain.ErrCodeBadRequest {
		t.Errorf("expected %s, got %s", domain.ErrCodeBadRequest, payload.Code)
	}
}
