package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConn serves queued envelopes then fails, simulating an abnormal
// close.
type scriptedConn struct {
	mu       sync.Mutex
	queue    []Envelope
	closed   chan struct{}
	closeOne sync.Once
}

func newScriptedConn(envs ...Envelope) *scriptedConn {
	return &scriptedConn{queue: envs, closed: make(chan struct{})}
}

func (c *scriptedConn) Read() (Envelope, error) {
	c.mu.Lock()
	if len(c.queue) > 0 {
		env := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		return env, nil
	}
	c.mu.Unlock()

	<-c.closed
	return Envelope{}, fmt.Errorf("connection lost")
}

func (c *scriptedConn) Close() error {
	c.closeOne.Do(func() { close(c.closed) })
	return nil
}

func TestHandle_Dispatch(t *testing.T) {
	conn := newScriptedConn(
		Envelope{Type: "KYC_STATUS_APPROVED", Message: "approved"},
		Envelope{Type: "TOTALLY_UNKNOWN", Message: "future server feature"},
		Envelope{Type: "KYC_STATUS_APPROVED", Message: "approved again"},
	)

	client := NewClientWithBackoff(logging.NewTestLogger(), 10*time.Millisecond)
	got := make(chan string, 4)
	ready := make(chan struct{})

	h := client.Subscribe(ChannelConfig{
		Name: "test",
		Dial: func(ctx context.Context) (Conn, error) {
			<-ready // handlers registered first
			return conn, nil
		},
	})
	defer h.Close()
	h.On("KYC_STATUS_APPROVED", func(env Envelope) { got <- env.Message })
	close(ready)

	assert.Equal(t, "approved", receive(t, got))
	assert.Equal(t, "approved again", receive(t, got), "unknown types must be skipped, not crash dispatch")
}

func TestHandle_CloseIsIdempotent(t *testing.T) {
	// P4: closing twice must not panic and must not dial again.
	var dials atomic.Int32

	client := NewClientWithBackoff(logging.NewTestLogger(), 10*time.Millisecond)
	h := client.Subscribe(ChannelConfig{
		Name: "test",
		Dial: func(ctx context.Context) (Conn, error) {
			dials.Add(1)
			return newScriptedConn(), nil
		},
	})

	waitState(t, h, StateOpen)
	h.Close()
	h.Close()

	assert.Equal(t, StateClosed, h.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load(), "close must not trigger reconnection")
}

func TestHandle_ReconnectAfterBackoff(t *testing.T) {
	// P5: an abnormal close yields exactly one reconnect attempt after the
	// backoff, never zero and never parallel attempts.
	var dials atomic.Int32
	conns := make(chan *scriptedConn, 4)

	client := NewClientWithBackoff(logging.NewTestLogger(), 40*time.Millisecond)
	h := client.Subscribe(ChannelConfig{
		Name: "test",
		Dial: func(ctx context.Context) (Conn, error) {
			dials.Add(1)
			c := newScriptedConn()
			conns <- c
			return c, nil
		},
	})
	defer h.Close()

	waitState(t, h, StateOpen)
	require.Equal(t, int32(1), dials.Load())

	// Kill the live connection.
	first := <-conns
	first.Close()

	// Inside the backoff window: no reconnect yet.
	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load(), "reconnect must wait out the backoff")

	// After the backoff: exactly one new attempt.
	waitState(t, h, StateOpen)
	assert.Equal(t, int32(2), dials.Load())

	// Quiet period: no spurious extra connections.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(2), dials.Load())
}

func TestHandle_CloseDuringBackoffCancelsReconnect(t *testing.T) {
	var dials atomic.Int32

	client := NewClientWithBackoff(logging.NewTestLogger(), 30*time.Millisecond)
	h := client.Subscribe(ChannelConfig{
		Name: "test",
		Dial: func(ctx context.Context) (Conn, error) {
			dials.Add(1)
			return nil, fmt.Errorf("refused")
		},
	})

	waitFor(t, func() bool { return dials.Load() >= 1 })
	h.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load(), "pending reconnect timer must be cancelled by close")
	assert.Equal(t, StateClosed, h.State())
}

func TestHandle_HandlersSurviveReconnect(t *testing.T) {
	var dials atomic.Int32
	got := make(chan string, 4)
	ready := make(chan struct{})

	client := NewClientWithBackoff(logging.NewTestLogger(), 10*time.Millisecond)
	h := client.Subscribe(ChannelConfig{
		Name: "test",
		Dial: func(ctx context.Context) (Conn, error) {
			<-ready
			n := dials.Add(1)
			if n == 1 {
				c := newScriptedConn()
				c.Close() // dies immediately
				return c, nil
			}
			return newScriptedConn(Envelope{Type: "NOTIFICATION", Message: "after reconnect"}), nil
		},
	})
	defer h.Close()
	h.On("NOTIFICATION", func(env Envelope) { got <- env.Message })
	close(ready)

	assert.Equal(t, "after reconnect", receive(t, got))
	assert.Equal(t, int32(2), dials.Load(), "handler fired on the second connection without re-registration")
}

func receive(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
		return ""
	}
}

func waitState(t *testing.T, h *Handle, want State) {
	t.Helper()
	for i := 0; i < 500; i++ {
		if h.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("handle never reached state %v (now %v)", want, h.State())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 500; i++ {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
