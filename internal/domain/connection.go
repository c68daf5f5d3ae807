package domain

import "strings"

// ChannelType distinguishes room-bound chat sockets from a user's notification socket.
type ChannelType string

const (
	ChannelChat          ChannelType = "chat"
	ChannelNotifications ChannelType = "notifications"
)

// ParseChannelType maps the connect-time "type" query parameter; anything but
// "notifications" is a chat connection.
func ParseChannelType(s string) ChannelType {
	if strings.EqualFold(strings.TrimSpace(s), string(ChannelNotifications)) {
		return ChannelNotifications
	}
	return ChannelChat
}

const userScopePrefix = "user#"

// UserScope is the synthetic room partition that holds a user's notification connection.
func UserScope(userID string) string { return userScopePrefix + userID }

// IsUserScope reports whether roomID is a notification scope rather than a chat room.
func IsUserScope(roomID string) bool { return strings.HasPrefix(roomID, userScopePrefix) }

// Connection is one live transport-level link bound to a room or to a notification scope.
type Connection struct {
	RoomID       string      `json:"room_id" dynamodbav:"room_id"`
	ConnectionID string      `json:"connection_id" dynamodbav:"connection_id"`
	UserID       string      `json:"user_id" dynamodbav:"user_id"`
	ChannelType  ChannelType `json:"type" dynamodbav:"type"`
	ConnectedAt  int64       `json:"connected_at" dynamodbav:"connected_at"`
	ExpiresAt    int64       `json:"-" dynamodbav:"expires_at,omitempty"` // DynamoDB TTL
}
