package session

import (
	"context"
	"fmt"

	"github.com/go-realtime-nosql/internal/domain"
	jwtinfra "github.com/go-realtime-nosql/internal/infrastructure/jwt"
	"github.com/go-realtime-nosql/internal/pkg/log"
)

// ConnectionStore is the slice of the connection registry sessions need.
type ConnectionStore interface {
	Bind(ctx context.Context, c *domain.Connection) error
	Unbind(ctx context.Context, roomID, connectionID string) error
	FindByUser(ctx context.Context, userID string, channelType domain.ChannelType) ([]domain.Connection, error)
	ListByConnection(ctx context.Context, connectionID string) ([]domain.Connection, error)
}

// RoomDirectory answers membership questions and resolves private rooms.
type RoomDirectory interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	ResolvePrivate(ctx context.Context, participants []string) (string, error)
}

type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// ConnectRequest opens a session. UserID is set only by transports that already
// authenticated the caller (an API Gateway authorizer); otherwise Token is verified.
type ConnectRequest struct {
	ConnectionID string
	Token        string
	UserID       string
	ChannelType  domain.ChannelType
}

type Service interface {
	Connect(ctx context.Context, req ConnectRequest) (*domain.Session, error)
	EnterRoom(ctx context.Context, sess *domain.Session, p domain.EnterRoomPayload) (string, error)
	ExitRoom(ctx context.Context, sess *domain.Session, roomID string) error
	// Disconnect unbinds everything the connection is bound to. Registry errors are
	// logged; the session always ends CLOSED.
	Disconnect(ctx context.Context, sess *domain.Session)
}

type service struct {
	conns    ConnectionStore
	rooms    RoomDirectory
	verifier TokenVerifier
}

func NewService(conns ConnectionStore, rooms RoomDirectory, verifier TokenVerifier) Service {
	return &service{conns: conns, rooms: rooms, verifier: verifier}
}

func (s *service) Connect(ctx context.Context, req ConnectRequest) (*domain.Session, error) {
	sess := domain.NewSession(req.ConnectionID, req.ChannelType)

	userID := req.UserID
	if userID == "" {
		if req.Token == "" || s.verifier == nil {
			return sess, fmt.Errorf("missing credential: %w", domain.ErrUnauthorized)
		}
		claims, err := s.verifier.Verify(req.Token)
		if err != nil {
			return sess, fmt.Errorf("invalid credential: %w", domain.ErrUnauthorized)
		}
		userID = claims.UserID
	}
	sess.Authenticate(userID)

	l := log.Ctx(ctx).With().
		Str(log.FieldConnectionID, req.ConnectionID).
		Str(log.FieldUserID, userID).
		Str(log.FieldChannelType, string(req.ChannelType)).
		Logger()

	if req.ChannelType == domain.ChannelNotifications {
		s.purgeNotificationConnections(ctx, userID, req.ConnectionID)
		if err := s.conns.Bind(ctx, &domain.Connection{
			RoomID:       domain.UserScope(userID),
			ConnectionID: req.ConnectionID,
			UserID:       userID,
			ChannelType:  domain.ChannelNotifications,
		}); err != nil {
			l.Warn().Err(err).Msg("bind notification connection")
		}
	}

	l.Info().Msg("connected")
	return sess, nil
}

// purgeNotificationConnections drops every older notification link of the user so
// exactly one stays bound after the new bind.
func (s *service) purgeNotificationConnections(ctx context.Context, userID, keep string) {
	l := log.Ctx(ctx)
	existing, err := s.conns.FindByUser(ctx, userID, domain.ChannelNotifications)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldUserID, userID).Msg("lookup previous notification connections")
		return
	}
	for _, c := range existing {
		if c.ConnectionID == keep {
			continue
		}
		if err := s.conns.Unbind(ctx, c.RoomID, c.ConnectionID); err != nil {
			l.Warn().Err(err).Str(log.FieldConnectionID, c.ConnectionID).Msg("purge notification connection")
		}
	}
}

func (s *service) EnterRoom(ctx context.Context, sess *domain.Session, p domain.EnterRoomPayload) (string, error) {
	if !sess.IsAuthenticated() {
		return "", fmt.Errorf("enter room: %w", domain.ErrUnauthorized)
	}
	if sess.ChannelType == domain.ChannelNotifications {
		return "", fmt.Errorf("notification connections cannot enter rooms: %w", domain.ErrBadRequest)
	}
	userID := sess.UserID()

	var roomID string
	switch {
	case p.TargetRoomID != "":
		ok, err := s.rooms.IsMember(ctx, p.TargetRoomID, userID)
		if err != nil {
			return "", fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("user %s is not a member of room %s: %w", userID, p.TargetRoomID, domain.ErrForbidden)
		}
		roomID = p.TargetRoomID
	case len(p.TargetUserIDs) > 0:
		var err error
		roomID, err = s.rooms.ResolvePrivate(ctx, append([]string{userID}, p.TargetUserIDs...))
		if err != nil {
			return "", fmt.Errorf("resolve private room: %w", err)
		}
	default:
		return "", fmt.Errorf("targetRoomId or targetUserId is required: %w", domain.ErrBadRequest)
	}

	l := log.Ctx(ctx).With().
		Str(log.FieldConnectionID, sess.ConnectionID).
		Str(log.FieldUserID, userID).
		Str(log.FieldRoomID, roomID).
		Logger()

	if prev := sess.RoomID(); prev != "" && prev != roomID {
		if err := s.conns.Unbind(ctx, prev, sess.ConnectionID); err != nil {
			l.Warn().Err(err).Str("previous_room_id", prev).Msg("unbind previous room")
		}
	}

	if err := s.conns.Bind(ctx, &domain.Connection{
		RoomID:       roomID,
		ConnectionID: sess.ConnectionID,
		UserID:       userID,
		ChannelType:  domain.ChannelChat,
	}); err != nil {
		l.Warn().Err(err).Msg("bind connection")
	}
	sess.EnterRoom(roomID)

	l.Info().Msg("entered room")
	return roomID, nil
}

func (s *service) ExitRoom(ctx context.Context, sess *domain.Session, roomID string) error {
	if !sess.IsAuthenticated() {
		return fmt.Errorf("exit room: %w", domain.ErrUnauthorized)
	}
	current := sess.RoomID()
	if roomID == "" {
		roomID = current
	}
	if roomID == "" {
		return nil
	}
	l := log.Ctx(ctx).With().
		Str(log.FieldConnectionID, sess.ConnectionID).
		Str(log.FieldRoomID, roomID).
		Logger()

	if err := s.conns.Unbind(ctx, roomID, sess.ConnectionID); err != nil {
		l.Warn().Err(err).Msg("unbind connection")
	}
	if roomID == current {
		sess.ExitRoom()
	}

	l.Info().Msg("exited room")
	return nil
}

func (s *service) Disconnect(ctx context.Context, sess *domain.Session) {
	l := log.Ctx(ctx).With().Str(log.FieldConnectionID, sess.ConnectionID).Logger()

	targets := make(map[string]struct{})
	if r := sess.RoomID(); r != "" {
		targets[r] = struct{}{}
	}
	if sess.ChannelType == domain.ChannelNotifications && sess.UserID() != "" {
		targets[domain.UserScope(sess.UserID())] = struct{}{}
	}
	bound, err := s.conns.ListByConnection(ctx, sess.ConnectionID)
	if err != nil {
		l.Warn().Err(err).Msg("lookup bound rooms")
	}
	for _, c := range bound {
		targets[c.RoomID] = struct{}{}
	}

	for roomID := range targets {
		if err := s.conns.Unbind(ctx, roomID, sess.ConnectionID); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("unbind on disconnect")
		}
	}
	sess.Close()

	l.Info().Str(log.FieldUserID, sess.UserID()).Int("unbound", len(targets)).Msg("disconnected")
}
