package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-realtime-nosql/internal/application/notification"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/fanout"
	"github.com/go-realtime-nosql/internal/pkg/log"
	"github.com/go-realtime-nosql/internal/pkg/validate"
)

// ConnectionStore is the slice of the connection registry the broadcaster needs.
type ConnectionStore interface {
	FindByConnection(ctx context.Context, connectionID string) (*domain.Connection, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Connection, error)
	Unbind(ctx context.Context, roomID, connectionID string) error
}

type MessageStore interface {
	Put(ctx context.Context, m *domain.Message) error
}

type MemberDirectory interface {
	Members(ctx context.Context, roomID string) ([]string, error)
}

type UnreadMarker interface {
	MarkUnread(ctx context.Context, userID string, m *domain.Message) error
}

type Notifier interface {
	NotifyNewMessage(ctx context.Context, userID string, m *domain.Message) notification.Report
}

// SendRequest is one sendmessage action. SenderID is the authenticated identity of
// the connection; RoomID may be empty, in which case the connection's room is used.
type SendRequest struct {
	ConnectionID   string `validate:"required"`
	SenderID       string `validate:"required"`
	SenderUsername string `validate:"max=64"`
	ProfilePicture string `validate:"omitempty,max=2048"`
	RoomID         string
	Content        string `validate:"required,max=4000"`
	Timestamp      int64  `validate:"gte=0"`
}

// Report describes what a Send attempted. It is returned once every live
// delivery and every absentee update has been attempted.
type Report struct {
	RoomID    string   `json:"roomId"`
	Timestamp int64    `json:"timestamp"`
	Attempted int      `json:"attempted"`
	Delivered int      `json:"delivered"`
	Pruned    int      `json:"pruned"`
	Absentees []string `json:"absentees"`
}

type Service interface {
	Send(ctx context.Context, req SendRequest) (*Report, error)
}

type service struct {
	conns       ConnectionStore
	messages    MessageStore
	members     MemberDirectory
	unread      UnreadMarker
	notifier    Notifier
	pusher      domain.Pusher
	concurrency int
	locks       *roomLocks
}

func NewService(
	conns ConnectionStore,
	messages MessageStore,
	members MemberDirectory,
	unread UnreadMarker,
	notifier Notifier,
	pusher domain.Pusher,
	concurrency int,
) Service {
	return &service{
		conns:       conns,
		messages:    messages,
		members:     members,
		unread:      unread,
		notifier:    notifier,
		pusher:      pusher,
		concurrency: concurrency,
		locks:       newRoomLocks(),
	}
}

func (s *service) Send(ctx context.Context, req SendRequest) (*Report, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	roomID, err := s.resolveRoom(ctx, req)
	if err != nil {
		return nil, err
	}

	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	msg := &domain.Message{
		RoomID:         roomID,
		Timestamp:      ts,
		SenderID:       req.SenderID,
		SenderUsername: req.SenderUsername,
		ProfilePicture: req.ProfilePicture,
		Content:        req.Content,
	}

	l := log.Ctx(ctx).With().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, req.SenderID).
		Int64(log.FieldTimestamp, ts).
		Logger()
	ctx = log.WithLogger(ctx, l)

	rep := &Report{RoomID: roomID, Timestamp: ts}
	active, err := s.persistAndFanOut(ctx, msg, rep)
	if err != nil {
		return nil, err
	}

	members, err := s.members.Members(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Msg("load room members, skipping absentees")
	}
	rep.Absentees = absentees(members, req.SenderID, active)
	s.markAbsentees(ctx, msg, rep.Absentees)

	l.Info().
		Int("attempted", rep.Attempted).
		Int("delivered", rep.Delivered).
		Int("pruned", rep.Pruned).
		Int("absentees", len(rep.Absentees)).
		Msg("message sent")
	return rep, nil
}

func (s *service) resolveRoom(ctx context.Context, req SendRequest) (string, error) {
	if req.RoomID != "" {
		return req.RoomID, nil
	}
	c, err := s.conns.FindByConnection(ctx, req.ConnectionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("connection %s: %w", req.ConnectionID, domain.ErrRoomNotFound)
		}
		return "", fmt.Errorf("resolve room: %w", err)
	}
	return c.RoomID, nil
}

// persistAndFanOut stores the message and pushes it to every live chat connection
// in the room. Both steps run under the room lock so each connection sees a room's
// messages in persistence order. Returns the set of users with a live connection.
func (s *service) persistAndFanOut(ctx context.Context, msg *domain.Message, rep *Report) (map[string]struct{}, error) {
	l := log.Ctx(ctx)

	unlock := s.locks.lock(msg.RoomID)
	defer unlock()

	if err := s.messages.Put(ctx, msg); err != nil {
		l.Error().Err(err).Msg("persist message")
	}

	conns, err := s.conns.ListByRoom(ctx, msg.RoomID)
	if err != nil {
		return nil, fmt.Errorf("list connections of %s: %w", msg.RoomID, err)
	}
	var targets []domain.Connection
	active := make(map[string]struct{})
	for _, c := range conns {
		if c.ChannelType == domain.ChannelNotifications {
			continue
		}
		targets = append(targets, c)
		active[c.UserID] = struct{}{}
	}

	data, err := json.Marshal(domain.NewMessageFrame(msg))
	if err != nil {
		return nil, fmt.Errorf("marshal message frame: %w", err)
	}

	var delivered, pruned int32
	fanout.Each(ctx, s.concurrency, targets, func(ctx context.Context, _ int, c domain.Connection) {
		err := s.pusher.Push(ctx, c.ConnectionID, data)
		switch {
		case err == nil:
			atomic.AddInt32(&delivered, 1)
		case errors.Is(err, domain.ErrGone):
			if uerr := s.conns.Unbind(ctx, c.RoomID, c.ConnectionID); uerr != nil {
				l.Warn().Err(uerr).Str(log.FieldConnectionID, c.ConnectionID).Msg("prune stale connection")
				return
			}
			atomic.AddInt32(&pruned, 1)
			l.Info().Str(log.FieldConnectionID, c.ConnectionID).Msg("pruned stale connection")
		default:
			l.Warn().Err(err).Str(log.FieldConnectionID, c.ConnectionID).Msg("push failed")
		}
	})

	rep.Attempted = len(targets)
	rep.Delivered = int(delivered)
	rep.Pruned = int(pruned)
	return active, nil
}

// markAbsentees records an unread marker and sends a new-message notification to
// every member who had no live connection in the room.
func (s *service) markAbsentees(ctx context.Context, msg *domain.Message, users []string) {
	l := log.Ctx(ctx)
	fanout.Each(ctx, s.concurrency, users, func(ctx context.Context, _ int, userID string) {
		if err := s.unread.MarkUnread(ctx, userID, msg); err != nil {
			l.Warn().Err(err).Str("recipient_id", userID).Msg("mark unread")
		}
		s.notifier.NotifyNewMessage(ctx, userID, msg)
	})
}

func absentees(members []string, senderID string, active map[string]struct{}) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(members))
	for _, u := range members {
		if u == senderID {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		if _, live := active[u]; live {
			continue
		}
		out = append(out, u)
	}
	return out
}
