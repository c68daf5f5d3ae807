package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-realtime-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockConnStore struct{ mock.Mock }

func (m *mockConnStore) FindByUser(ctx context.Context, userID string, ct domain.ChannelType) ([]domain.Connection, error) {
	args := m.Called(ctx, userID, ct)
	if c, _ := args.Get(0).([]domain.Connection); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockConnStore) Unbind(ctx context.Context, roomID, connectionID string) error {
	return m.Called(ctx, roomID, connectionID).Error(0)
}

type mockOffline struct{ mock.Mock }

func (m *mockOffline) PublishOffline(ctx context.Context, userID, kind string, payload []byte) error {
	return m.Called(ctx, userID, kind, payload).Error(0)
}

// fakePusher records pushes and fails per connection id.
type fakePusher struct {
	mu   sync.Mutex
	fail map[string]error
	sent map[string][][]byte
}

func newFakePusher() *fakePusher {
	return &fakePusher{fail: map[string]error{}, sent: map[string][][]byte{}}
}

func (p *fakePusher) Push(_ context.Context, connectionID string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[connectionID]; err != nil {
		return err
	}
	p.sent[connectionID] = append(p.sent[connectionID], data)
	return nil
}

func notifConn(userID, connID string) domain.Connection {
	return domain.Connection{
		RoomID:       domain.UserScope(userID),
		ConnectionID: connID,
		UserID:       userID,
		ChannelType:  domain.ChannelNotifications,
	}
}

// --- tests ---

func TestNotify_NoConnections_IsNoop(t *testing.T) {
	conns := new(mockConnStore)
	conns.On("FindByUser", mock.Anything, "u2", domain.ChannelNotifications).Return([]domain.Connection{}, nil)
	pusher := newFakePusher()

	svc := NewService(conns, pusher, nil, 4)
	rep := svc.Notify(context.Background(), "u2", "test", map[string]string{"a": "b"})

	assert.Equal(t, Report{}, rep)
	assert.Empty(t, pusher.sent)
	conns.AssertNotCalled(t, "Unbind", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_NoConnections_PublishesOffline(t *testing.T) {
	conns := new(mockConnStore)
	conns.On("FindByUser", mock.Anything, "u2", domain.ChannelNotifications).Return([]domain.Connection{}, nil)
	offline := new(mockOffline)
	offline.On("PublishOffline", mock.Anything, "u2", domain.TypeNewMessage, mock.Anything).Return(nil)

	svc := NewService(conns, newFakePusher(), offline, 4)
	rep := svc.NotifyNewMessage(context.Background(), "u2", &domain.Message{RoomID: "r1", Timestamp: 1, Content: "hi"})

	assert.True(t, rep.Offline)
	offline.AssertExpectations(t)
}

func TestNotify_PushesToEveryConnection(t *testing.T) {
	conns := new(mockConnStore)
	conns.On("FindByUser", mock.Anything, "u1", domain.ChannelNotifications).
		Return([]domain.Connection{notifConn("u1", "n1"), notifConn("u1", "n2")}, nil)
	pusher := newFakePusher()

	svc := NewService(conns, pusher, nil, 4)
	rep := svc.Notify(context.Background(), "u1", "test", map[string]string{"k": "v"})

	assert.Equal(t, 2, rep.Targets)
	assert.Equal(t, 2, rep.Delivered)
	require.Len(t, pusher.sent["n1"], 1)
	assert.JSONEq(t, `{"k":"v"}`, string(pusher.sent["n1"][0]))
	require.Len(t, pusher.sent["n2"], 1)
}

func TestNotify_GoneConnectionIsPruned(t *testing.T) {
	conns := new(mockConnStore)
	conns.On("FindByUser", mock.Anything, "u1", domain.ChannelNotifications).
		Return([]domain.Connection{notifConn("u1", "n1"), notifConn("u1", "n2")}, nil)
	conns.On("Unbind", mock.Anything, "user#u1", "n1").Return(nil).Once()
	pusher := newFakePusher()
	pusher.fail["n1"] = fmt.Errorf("post: %w", domain.ErrGone)

	svc := NewService(conns, pusher, nil, 4)
	rep := svc.Notify(context.Background(), "u1", "test", struct{}{})

	assert.Equal(t, 1, rep.Delivered)
	assert.Equal(t, 1, rep.Pruned)
	conns.AssertExpectations(t)
}

func TestNotify_OtherPushErrorIsNotPruned(t *testing.T) {
	conns := new(mockConnStore)
	conns.On("FindByUser", mock.Anything, "u1", domain.ChannelNotifications).
		Return([]domain.Connection{notifConn("u1", "n1")}, nil)
	pusher := newFakePusher()
	pusher.fail["n1"] = errors.New("timeout")

	svc := NewService(conns, pusher, nil, 4)
	rep := svc.Notify(context.Background(), "u1", "test", struct{}{})

	assert.Equal(t, 0, rep.Delivered)
	assert.Equal(t, 0, rep.Pruned)
	conns.AssertNotCalled(t, "Unbind", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_LookupFailureIsSwallowed(t *testing.T) {
	conns := new(mockConnStore)
	conns.On("FindByUser", mock.Anything, "u1", domain.ChannelNotifications).Return(nil, errors.New("dynamo down"))

	svc := NewService(conns, newFakePusher(), nil, 4)
	assert.Equal(t, Report{}, svc.Notify(context.Background(), "u1", "test", struct{}{}))
}

func TestNotifyFriendRequest_FrameTypes(t *testing.T) {
	cases := map[domain.FriendRequestKind]string{
		domain.FriendRequestSent:     domain.TypeFriendRequest,
		domain.FriendRequestAccepted: domain.TypeFriendRequestAccepted,
		domain.FriendRequestDeclined: domain.TypeFriendRequestDeclined,
	}
	for kind, want := range cases {
		t.Run(string(kind), func(t *testing.T) {
			conns := new(mockConnStore)
			conns.On("FindByUser", mock.Anything, "u2", domain.ChannelNotifications).
				Return([]domain.Connection{notifConn("u2", "n9")}, nil)
			pusher := newFakePusher()

			svc := NewService(conns, pusher, nil, 4)
			rep, err := svc.NotifyFriendRequest(context.Background(), "u2", kind, "u1", "alice")
			require.NoError(t, err)
			assert.Equal(t, 1, rep.Delivered)

			var frame domain.FriendRequestNotification
			require.NoError(t, json.Unmarshal(pusher.sent["n9"][0], &frame))
			assert.Equal(t, want, frame.Type)
			assert.Equal(t, "u1", frame.FromUserID)
			assert.Equal(t, "alice", frame.FromUsername)
		})
	}
}

func TestNotifyFriendRequest_UnknownKind(t *testing.T) {
	svc := NewService(new(mockConnStore), newFakePusher(), nil, 4)
	_, err := svc.NotifyFriendRequest(context.Background(), "u2", "poked", "u1", "alice")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
