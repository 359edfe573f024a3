package pubsub

import "fmt"

// Channel naming convention for cross-instance room event relay.
//
// Every event an instance emits to a local room is mirrored onto the bus
// under the room's channel; peer instances re-emit it to their own local
// members of that room.
const channelRoomEvents = "chat:room:%s:events"

// RoomEventsChannel returns the bus channel carrying events for one room.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(channelRoomEvents, roomID)
}

// RoomEventsPattern matches the event channels of every room.
func RoomEventsPattern() string {
	return fmt.Sprintf(channelRoomEvents, "*")
}
