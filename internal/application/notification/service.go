package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/fanout"
	"github.com/go-realtime-nosql/internal/pkg/log"
)

// ConnectionStore is the slice of the connection registry notifications need.
type ConnectionStore interface {
	FindByUser(ctx context.Context, userID string, channelType domain.ChannelType) ([]domain.Connection, error)
	Unbind(ctx context.Context, roomID, connectionID string) error
}

// OfflinePublisher receives notifications for users with no live notification connection.
type OfflinePublisher interface {
	PublishOffline(ctx context.Context, userID, kind string, payload []byte) error
}

// Report summarizes one notification attempt.
type Report struct {
	Targets   int  `json:"targets"`
	Delivered int  `json:"delivered"`
	Pruned    int  `json:"pruned"`
	Offline   bool `json:"offline"`
}

type Service interface {
	// Notify pushes payload to every notification connection of userID.
	// Delivery is best effort: failures are logged and stale links pruned, never returned.
	Notify(ctx context.Context, userID, kind string, payload any) Report
	NotifyNewMessage(ctx context.Context, userID string, m *domain.Message) Report
	NotifyFriendRequest(ctx context.Context, userID string, kind domain.FriendRequestKind, fromUserID, fromUsername string) (Report, error)
}

type service struct {
	conns       ConnectionStore
	pusher      domain.Pusher
	offline     OfflinePublisher
	concurrency int
}

// NewService wires the notifier. offline may be nil to make a missing connection a pure no-op.
func NewService(conns ConnectionStore, pusher domain.Pusher, offline OfflinePublisher, concurrency int) Service {
	return &service{conns: conns, pusher: pusher, offline: offline, concurrency: concurrency}
}

func (s *service) Notify(ctx context.Context, userID, kind string, payload any) Report {
	l := log.Ctx(ctx).With().Str(log.FieldUserID, userID).Str("kind", kind).Logger()
	var rep Report

	data, err := json.Marshal(payload)
	if err != nil {
		l.Error().Err(err).Msg("marshal notification")
		return rep
	}

	conns, err := s.conns.FindByUser(ctx, userID, domain.ChannelNotifications)
	if err != nil {
		l.Error().Err(err).Msg("lookup notification connections")
		return rep
	}
	rep.Targets = len(conns)
	if len(conns) == 0 {
		if s.offline != nil {
			if err := s.offline.PublishOffline(ctx, userID, kind, data); err != nil {
				l.Warn().Err(err).Msg("offline publish failed")
			} else {
				rep.Offline = true
			}
		}
		return rep
	}

	var delivered, pruned int32
	fanout.Each(ctx, s.concurrency, conns, func(ctx context.Context, _ int, c domain.Connection) {
		err := s.pusher.Push(ctx, c.ConnectionID, data)
		switch {
		case err == nil:
			atomic.AddInt32(&delivered, 1)
		case errors.Is(err, domain.ErrGone):
			if uerr := s.conns.Unbind(ctx, c.RoomID, c.ConnectionID); uerr != nil {
				l.Warn().Err(uerr).Str(log.FieldConnectionID, c.ConnectionID).Msg("prune stale notification connection")
				return
			}
			atomic.AddInt32(&pruned, 1)
			l.Info().Str(log.FieldConnectionID, c.ConnectionID).Msg("pruned stale notification connection")
		default:
			l.Warn().Err(err).Str(log.FieldConnectionID, c.ConnectionID).Msg("notification push failed")
		}
	})
	rep.Delivered = int(delivered)
	rep.Pruned = int(pruned)

	l.Debug().Int("targets", rep.Targets).Int("delivered", rep.Delivered).Msg("notified")
	return rep
}

func (s *service) NotifyNewMessage(ctx context.Context, userID string, m *domain.Message) Report {
	return s.Notify(ctx, userID, domain.TypeNewMessage, domain.NewNewMessageNotification(m))
}

func (s *service) NotifyFriendRequest(ctx context.Context, userID string, kind domain.FriendRequestKind, fromUserID, fromUsername string) (Report, error) {
	frameType, ok := kind.FrameType()
	if !ok {
		return Report{}, fmt.Errorf("unknown friend request kind %q: %w", kind, domain.ErrBadRequest)
	}
	return s.Notify(ctx, userID, frameType, &domain.FriendRequestNotification{
		Type:         frameType,
		FromUserID:   fromUserID,
		FromUsername: fromUsername,
	}), nil
}
