package dynamo

// DynamoDB attribute names shared by key builders, conditions and update expressions.
const (
	attrPK           = "pk"
	attrSK           = "sk"
	attrRoomID       = "room_id"
	attrConnectionID = "connection_id"
	attrUserID       = "user_id"

	fieldExpiresAt  = "expires_at"
	fieldLastSeenAt = "last_seen_at"
)

// GSI names on the connections table.
const (
	indexUserID       = "user_id-index"
	indexConnectionID = "connection_id-index"
)
