package dynamo

import (
	"testing"

	"github.com/go-realtime-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomBinding_SkipsAnchorRow(t *testing.T) {
	rows := []domain.Connection{
		{RoomID: domain.UserScope("u1"), ConnectionID: "c1", UserID: "u1", ChannelType: domain.ChannelChat},
		{RoomID: "r1", ConnectionID: "c1", UserID: "u1", ChannelType: domain.ChannelChat},
	}

	c, ok := roomBinding(rows)
	require.True(t, ok)
	assert.Equal(t, "r1", c.RoomID)
}

func TestRoomBinding_OnlyUserScopeRows(t *testing.T) {
	rows := []domain.Connection{
		{RoomID: domain.UserScope("u1"), ConnectionID: "c1", UserID: "u1", ChannelType: domain.ChannelChat},
		{RoomID: domain.UserScope("u1"), ConnectionID: "c1", UserID: "u1", ChannelType: domain.ChannelNotifications},
	}

	_, ok := roomBinding(rows)
	assert.False(t, ok)

	_, ok = roomBinding(nil)
	assert.False(t, ok)
}

func TestRoomBinding_SkipsNotificationRows(t *testing.T) {
	rows := []domain.Connection{
		{RoomID: "r9", ConnectionID: "c1", UserID: "u1", ChannelType: domain.ChannelNotifications},
		{RoomID: "r1", ConnectionID: "c1", UserID: "u1", ChannelType: domain.ChannelChat},
	}

	c, ok := roomBinding(rows)
	require.True(t, ok)
	assert.Equal(t, "r1", c.RoomID)
}

func TestFilterChannel(t *testing.T) {
	rows := []domain.Connection{
		{RoomID: "r1", ConnectionID: "c1", ChannelType: domain.ChannelChat},
		{RoomID: domain.UserScope("u1"), ConnectionID: "n1", ChannelType: domain.ChannelNotifications},
		{RoomID: "r2", ConnectionID: "c2", ChannelType: domain.ChannelChat},
	}

	notif := filterChannel(rows, domain.ChannelNotifications)
	require.Len(t, notif, 1)
	assert.Equal(t, "n1", notif[0].ConnectionID)

	chat := filterChannel(rows, domain.ChannelChat)
	require.Len(t, chat, 2)
	assert.Equal(t, "c1", chat[0].ConnectionID)
	assert.Equal(t, "c2", chat[1].ConnectionID)

	assert.Len(t, filterChannel(rows, ""), 3)
	assert.Empty(t, filterChannel(nil, domain.ChannelChat))
}
