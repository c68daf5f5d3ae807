package domain

import "sync"

// SessionState is the lifecycle position of one connection.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateInRoom
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateInRoom:
		return "IN_ROOM"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session tracks what a single connection is bound to. Safe for concurrent use.
type Session struct {
	ConnectionID string
	ChannelType  ChannelType

	mu     sync.RWMutex
	userID string
	roomID string
	state  SessionState
}

func NewSession(connectionID string, channelType ChannelType) *Session {
	return &Session{
		ConnectionID: connectionID,
		ChannelType:  channelType,
		state:        StateUnauthenticated,
	}
}

// RestoreSession rebuilds a session for a connection whose identity and room
// were recorded elsewhere, as happens for stateless per-event handlers.
func RestoreSession(connectionID, userID string, channelType ChannelType, roomID string) *Session {
	s := NewSession(connectionID, channelType)
	s.Authenticate(userID)
	if roomID != "" && !IsUserScope(roomID) {
		s.EnterRoom(roomID)
	}
	return s
}

func (s *Session) Authenticate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.state = StateAuthenticated
}

func (s *Session) EnterRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.state = StateInRoom
}

// ExitRoom returns an in-room session to AUTHENTICATED; the socket stays usable.
func (s *Session) ExitRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	if s.state == StateInRoom {
		s.state = StateAuthenticated
	}
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.state = StateClosed
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

func (s *Session) IsAuthenticated() bool {
	st := s.State()
	return st == StateAuthenticated || st == StateInRoom
}
