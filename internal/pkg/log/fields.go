package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Realtime
	FieldConnectionID = "connection_id"
	FieldRoomID       = "room_id"
	FieldUserID       = "user_id"
	FieldChannelType  = "channel_type"
	FieldAction       = "action"
	FieldTimestamp    = "message_ts"

	FieldService = "service"
)
