// Package relay forwards room-scoped events between instances over the
// event bus. Presence snapshots stay per-instance; only room emits cross
// the wire.
package relay

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/presence"
	"github.com/nimbuschat/nimbus/pkg/log"
	"github.com/nimbuschat/nimbus/pkg/pubsub"
)

// Relay publishes local room events and re-emits events received from peer
// instances. Each relay carries a random origin id and skips its own
// events on the way back in.
type Relay struct {
	bus      pubsub.PubSub
	presence *presence.Service
	origin   string
}

// New creates a relay on the given bus and attaches it to the presence
// service as its publisher.
func New(bus pubsub.PubSub, p *presence.Service) *Relay {
	r := &Relay{
		bus:      bus,
		presence: p,
		origin:   uuid.New().String(),
	}
	p.SetPublisher(r)
	return r
}

// Start subscribes to every room-event channel and pumps remote events
// into the local presence service until ctx is canceled.
func (r *Relay) Start(ctx context.Context) error {
	events, err := r.bus.SubscribePattern(ctx, pubsub.RoomEventsPattern())
	if err != nil {
		return err
	}

	go func() {
		for event := range events {
			if event.Origin == r.origin {
				continue
			}
			r.presence.EmitToRoomLocal(event.RoomID, domain.EventKind(event.Type), json.RawMessage(event.Payload))
		}
		log.L().Info().Msg("relay subscription closed")
	}()

	log.L().Info().Str("origin", r.origin).Msg("relay started")
	return nil
}

// PublishRoomEvent forwards a locally emitted room event to peers.
// Best-effort: a bus failure is logged and the local delivery stands.
func (r *Relay) PublishRoomEvent(roomID string, event domain.EventKind, payload interface{}) {
	busEvent, err := pubsub.NewEvent(string(event), roomID, r.origin, payload)
	if err != nil {
		log.L().Error().Err(err).Str(log.FieldEvent, string(event)).Msg("marshal relay event")
		return
	}

	if err := r.bus.Publish(context.Background(), pubsub.RoomEventsChannel(roomID), busEvent); err != nil {
		log.L().Warn().Err(err).
			Str(log.FieldRoomID, roomID).
			Str(log.FieldEvent, string(event)).
			Msg("publish relay event failed")
	}
}

// Close shuts the underlying bus down.
func (r *Relay) Close() error {
	return r.bus.Close()
}
