package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-wayfind/internal/log"
	"github.com/teslashibe/go-wayfind/pkg/navigation"
	"github.com/teslashibe/go-wayfind/pkg/protocol"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h, cancel
}

func fakeClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer), pong: make(chan Message, 1)}
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	h, _ := startHub(t)
	a := fakeClient(h, 4)
	b := fakeClient(h, 4)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	h.Broadcast(NewJSONMessage([]byte(`{"n":1}`)))

	assert.JSONEq(t, `{"n":1}`, string(receive(t, a).Data))
	assert.JSONEq(t, `{"n":1}`, string(receive(t, b).Data))
}

func TestHub_NewClientGetsLastState(t *testing.T) {
	h, _ := startHub(t)
	early := fakeClient(h, 4)

	h.OnState(navigation.State{SessionID: "s-1", Phase: navigation.PhaseActive})
	receive(t, early)

	late := fakeClient(h, 4)
	m := receive(t, late)

	msg, err := protocol.ParseMessage(m.Data)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeState, msg.Type)
	st, err := msg.GetState()
	require.NoError(t, err)
	assert.Equal(t, "s-1", st.SessionID)
}

func TestHub_ReplaysLatestOnly(t *testing.T) {
	h, _ := startHub(t)
	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 0}))
	require.NoError(t, h.BroadcastJSON(map[string]int{"n": 1}))

	// Ordering through the broadcast channel means the second message is
	// the one retained.
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.last != nil && string(h.last.Data) == `{"n":1}`
	}, time.Second, time.Millisecond)

	c := fakeClient(h, 4)
	assert.JSONEq(t, `{"n":1}`, string(receive(t, c).Data))
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := fakeClient(h, 1)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.Broadcast(NewJSONMessage([]byte(`1`)))
	h.Broadcast(NewJSONMessage([]byte(`2`)))

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok, "slow client's channel is closed")
}

func TestHub_Unregister(t *testing.T) {
	h, _ := startHub(t)
	c := fakeClient(h, 1)
	h.unregister <- c

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := fakeClient(h, 1)

	cancel()
	<-h.Done()
	assert.False(t, h.IsRunning())

	_, ok := <-c.send
	assert.False(t, ok)
	assert.Nil(t, NewClient(h, nil), "registration after stop fails fast")
}
