package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu     sync.Mutex
	writes []written
	closed chan struct{}
	once   sync.Once
}

type written struct {
	typ  int
	data []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(typ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, written{typ: typ, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages(typ int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, w := range f.writes {
		if w.typ == typ {
			out = append(out, string(w.data))
		}
	}
	return out
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)

	a, b := newFakeConn(), newFakeConn()
	ca := NewClient(h, a)
	cb := NewClient(h, b)
	go ca.Run()
	go cb.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]string{"label": "banana"}))
	h.BroadcastBinary([]byte{0xff, 0xd8})

	for _, c := range []*fakeConn{a, b} {
		require.Eventually(t, func() bool {
			return len(c.messages(websocket.TextMessage)) == 1 && len(c.messages(websocket.BinaryMessage)) == 1
		}, time.Second, time.Millisecond)
		assert.JSONEq(t, `{"label":"banana"}`, c.messages(websocket.TextMessage)[0])
	}
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestHub_GreetingPrecedesBroadcast(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	c := NewClient(h, conn, NewJSONMessage([]byte(`"hello"`)))
	go c.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.Broadcast(NewJSONMessage([]byte(`"next"`)))

	require.Eventually(t, func() bool { return len(conn.messages(websocket.TextMessage)) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{`"hello"`, `"next"`}, conn.messages(websocket.TextMessage))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)

	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return len(conn.messages(websocket.CloseMessage)) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)

	// Late registrations do not block once the hub is gone.
	late := NewClient(h, newFakeConn())
	_, ok := <-late.send
	assert.False(t, ok)
}

func TestHub_SlowClientDropped(t *testing.T) {
	h, _ := startHub(t)

	// Registered but never pumped, so its buffer fills up.
	stalled := NewClient(h, newFakeConn())
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	for i := 0; i <= sendBuffer; i++ {
		for !h.Broadcast(NewBinaryMessage([]byte{byte(i)})) {
			time.Sleep(time.Millisecond)
		}
	}

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	n := 0
	for range stalled.send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestBroadcast_FullQueueDrops(t *testing.T) {
	h := New("idle") // never run, so nothing drains the queue
	for i := 0; i < cap(h.broadcast); i++ {
		require.True(t, h.Broadcast(NewJSONMessage(nil)))
	}
	assert.False(t, h.Broadcast(NewJSONMessage(nil)))
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestMessageType_String(t *testing.T) {
	assert.Equal(t, "json", JSONMessage.String())
	assert.Equal(t, "binary", BinaryMessage.String())
}
