package unread

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/fanout"
	"github.com/go-realtime-nosql/internal/pkg/log"
)

// Store persists unread markers.
type Store interface {
	Put(ctx context.Context, m *domain.UnreadMarker) error
	ListByUser(ctx context.Context, userID, roomID string) ([]domain.UnreadMarker, error)
	Delete(ctx context.Context, userID string, ts int64) error
}

// Summary is the badge view of a user's unread markers.
type Summary struct {
	Total int            `json:"total"`
	Rooms map[string]int `json:"rooms"`
}

type Service interface {
	MarkUnread(ctx context.Context, userID string, m *domain.Message) error
	List(ctx context.Context, userID string) ([]domain.UnreadMarker, error)
	Summary(ctx context.Context, userID string) (*Summary, error)
	// ClearRoom deletes the user's markers for roomID and returns how many went.
	// Individual delete failures are logged and skipped.
	ClearRoom(ctx context.Context, userID, roomID string) (int, error)
	ClearAll(ctx context.Context, userID string) (int, error)
}

type service struct {
	store       Store
	concurrency int
}

func NewService(store Store, concurrency int) Service {
	return &service{store: store, concurrency: concurrency}
}

func (s *service) MarkUnread(ctx context.Context, userID string, m *domain.Message) error {
	marker := domain.NewUnreadMarker(userID, m)
	if err := s.store.Put(ctx, &marker); err != nil {
		return fmt.Errorf("mark unread for %s: %w", userID, err)
	}
	return nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.UnreadMarker, error) {
	markers, err := s.store.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if markers == nil {
		markers = []domain.UnreadMarker{}
	}
	return markers, nil
}

func (s *service) Summary(ctx context.Context, userID string) (*Summary, error) {
	markers, err := s.store.ListByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	sum := &Summary{Total: len(markers), Rooms: make(map[string]int)}
	for _, m := range markers {
		sum.Rooms[m.RoomID]++
	}
	return sum, nil
}

func (s *service) ClearRoom(ctx context.Context, userID, roomID string) (int, error) {
	if roomID == "" {
		return 0, fmt.Errorf("room id is required: %w", domain.ErrBadRequest)
	}
	return s.clear(ctx, userID, roomID)
}

func (s *service) ClearAll(ctx context.Context, userID string) (int, error) {
	return s.clear(ctx, userID, "")
}

func (s *service) clear(ctx context.Context, userID, roomID string) (int, error) {
	markers, err := s.store.ListByUser(ctx, userID, roomID)
	if err != nil {
		return 0, fmt.Errorf("list unread for %s: %w", userID, err)
	}

	l := log.Ctx(ctx).With().Str(log.FieldUserID, userID).Logger()
	var deleted int32
	fanout.Each(ctx, s.concurrency, markers, func(ctx context.Context, _ int, m domain.UnreadMarker) {
		if err := s.store.Delete(ctx, userID, m.Timestamp); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomID, m.RoomID).Int64(log.FieldTimestamp, m.Timestamp).Msg("delete unread marker")
			return
		}
		atomic.AddInt32(&deleted, 1)
	})

	l.Info().Str(log.FieldRoomID, roomID).Int32("deleted", deleted).Msg("cleared unread markers")
	return int(deleted), nil
}
