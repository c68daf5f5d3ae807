package domain

// Message is one immutable chat payload. Timestamp doubles as the message id within a room.
type Message struct {
	RoomID         string `json:"RoomId"`
	Timestamp      int64  `json:"Timestamp"`
	SenderID       string `json:"SenderId"`
	SenderUsername string `json:"SenderUsername"`
	ProfilePicture string `json:"ProfilePicture,omitempty"`
	Content        string `json:"Content"`
}

// UnreadMarker stands in for a message a recipient was not live to receive.
type UnreadMarker struct {
	UserID         string `json:"user_id"`
	Timestamp      int64  `json:"timestamp"`
	RoomID         string `json:"room_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	Content        string `json:"content"`
}

// NewUnreadMarker builds the marker for recipient userID.
func NewUnreadMarker(userID string, m *Message) UnreadMarker {
	return UnreadMarker{
		UserID:         userID,
		Timestamp:      m.Timestamp,
		RoomID:         m.RoomID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		ProfilePicture: m.ProfilePicture,
		Content:        m.Content,
	}
}
