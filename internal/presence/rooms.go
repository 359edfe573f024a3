package presence

// GroupRoomPrefix namespaces group rooms away from the user-id keyspace.
// The prefix is part of the wire contract with the frontend.
const GroupRoomPrefix = "group_"

// UserRoom returns the identity room for a user. Every connection a user
// holds is joined to this room at connect time, so a single emit reaches
// all of their devices.
func UserRoom(userID string) string {
	return userID
}

// GroupRoom returns the namespaced room id for a group.
func GroupRoom(groupID string) string {
	return GroupRoomPrefix + groupID
}
