package ws

import (
	"context"
	"testing"

	"github.com/go-realtime-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(id string, buffer int) *Client {
	return &Client{
		ID:      id,
		Session: domain.NewSession(id, domain.ChannelChat),
		send:    make(chan []byte, buffer),
	}
}

func TestHub_PushUnknownIsGone(t *testing.T) {
	h := NewHub()
	err := h.Push(context.Background(), "missing", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrGone)
}

func TestHub_PushQueues(t *testing.T) {
	h := NewHub()
	c := testClient("c1", 2)
	h.Add(c)

	require.NoError(t, h.Push(context.Background(), "c1", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-c.send)
}

func TestHub_FullBufferClosesClient(t *testing.T) {
	h := NewHub()
	c := testClient("c1", 1)
	h.Add(c)

	require.NoError(t, h.Push(context.Background(), "c1", []byte("1")))
	err := h.Push(context.Background(), "c1", []byte("2"))
	assert.ErrorIs(t, err, domain.ErrGone)

	// Closed clients stay gone.
	assert.ErrorIs(t, h.Push(context.Background(), "c1", []byte("3")), domain.ErrGone)
}

func TestHub_RemoveOnlySameClient(t *testing.T) {
	h := NewHub()
	old := testClient("c1", 1)
	h.Add(old)
	replacement := testClient("c1", 1)
	h.Add(replacement)

	h.Remove(old)
	got, ok := h.Get("c1")
	require.True(t, ok)
	assert.Same(t, replacement, got)

	h.Remove(replacement)
	assert.Equal(t, 0, h.Count())
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub()
	a, b := testClient("a", 1), testClient("b", 1)
	h.Add(a)
	h.Add(b)

	h.CloseAll()

	_, open := <-a.send
	assert.False(t, open)
	_, open = <-b.send
	assert.False(t, open)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := testClient("c1", 1)
	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})
	assert.False(t, c.enqueue([]byte("x")))
}
