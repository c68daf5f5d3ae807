package domain

// Inbound actions carried in the "action" field of every client frame.
const (
	ActionEnterRoom   = "enterroom"
	ActionSendMessage = "sendmessage"
	ActionExitRoom    = "exitroom"
	ActionPing        = "ping"
)

// Outbound frame types.
const (
	TypeMessage               = "message"
	TypeNewMessage            = "newMessage"
	TypeFriendRequest         = "friendRequest"
	TypeFriendRequestAccepted = "friendRequestAccepted"
	TypeFriendRequestDeclined = "friendRequestDeclined"
	TypeAck                   = "ack"
	TypeError                 = "error"
	TypePong                  = "pong"
)

// Error codes sent in error frames.
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeRoomNotFound  = "ROOM_NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Envelope is decoded first to route a frame by its action.
type Envelope struct {
	Action string `json:"action"`
}

// Client -> server payloads

type EnterRoomPayload struct {
	Action        string   `json:"action"`
	TargetRoomID  string   `json:"targetRoomId"`
	TargetUserIDs []string `json:"targetUserId"`
}

type SendMessagePayload struct {
	Action         string `json:"action"`
	SenderID       string `json:"SenderId"`
	SenderUsername string `json:"SenderUsername"`
	ProfilePicture string `json:"ProfilePicture"`
	RoomID         string `json:"RoomId"`
	Content        string `json:"Content"`
	Timestamp      int64  `json:"Timestamp"`
}

type ExitRoomPayload struct {
	Action string `json:"action"`
	RoomID string `json:"roomId"`
}

// Server -> client frames

// RoomEnteredReply answers enterroom so the client can route itself.
type RoomEnteredReply struct {
	RoomID string `json:"roomId"`
}

// MessageFrame is the live chat delivery pushed to every connection in a room.
type MessageFrame struct {
	Type string `json:"type"`
	Message
}

func NewMessageFrame(m *Message) *MessageFrame {
	return &MessageFrame{Type: TypeMessage, Message: *m}
}

// NewMessageNotification alerts a room member who is not currently viewing the room.
type NewMessageNotification struct {
	Type           string `json:"type"`
	RoomID         string `json:"roomId"`
	SenderID       string `json:"senderId"`
	SenderUsername string `json:"senderUsername"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Content        string `json:"content"`
	Timestamp      int64  `json:"timestamp"`
}

func NewNewMessageNotification(m *Message) *NewMessageNotification {
	return &NewMessageNotification{
		Type:           TypeNewMessage,
		RoomID:         m.RoomID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		ProfilePicture: m.ProfilePicture,
		Content:        m.Content,
		Timestamp:      m.Timestamp,
	}
}

// FriendRequestKind is the lifecycle step of a friend request.
type FriendRequestKind string

const (
	FriendRequestSent     FriendRequestKind = "sent"
	FriendRequestAccepted FriendRequestKind = "accepted"
	FriendRequestDeclined FriendRequestKind = "declined"
)

// FrameType maps the lifecycle step to its notification frame type.
func (k FriendRequestKind) FrameType() (string, bool) {
	switch k {
	case FriendRequestSent:
		return TypeFriendRequest, true
	case FriendRequestAccepted:
		return TypeFriendRequestAccepted, true
	case FriendRequestDeclined:
		return TypeFriendRequestDeclined, true
	}
	return "", false
}

// FriendRequestNotification is pushed to the other party of a friend request.
type FriendRequestNotification struct {
	Type         string `json:"type"`
	FromUserID   string `json:"fromUserId"`
	FromUsername string `json:"fromUsername,omitempty"`
}

type AckFrame struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	RoomID    string `json:"roomId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    TypeError,
		Code:    code,
		Message: message,
	}
}
