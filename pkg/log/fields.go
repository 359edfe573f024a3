package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware context keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Realtime
	FieldConnID  = "conn_id"
	FieldRoomID  = "room_id"
	FieldGroupID = "group_id"
	FieldEvent   = "event"
)
