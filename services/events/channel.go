package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AurumGate/AurumGate-Portal/services/monitoring/logging"
	"github.com/google/uuid"
)

// DefaultBackoff is the fixed wait between reconnection attempts.
const DefaultBackoff = 5 * time.Second

// Connection states. CLOSED is terminal and only reached by Close.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Envelope is the wire shape of every push message: {type, message, data}.
type Envelope struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Handler consumes one dispatched envelope.
type Handler func(Envelope)

// Conn is one live transport connection delivering envelopes in order.
type Conn interface {
	Read() (Envelope, error)
	Close() error
}

// DialFunc opens a single connection attempt.
type DialFunc func(ctx context.Context) (Conn, error)

// ChannelConfig describes a logical subscription.
type ChannelConfig struct {
	Name string
	Dial DialFunc
}

// Client opens push channels. One Handle per (subscriber, channel) pair.
type Client struct {
	logger  *logging.Logger
	backoff time.Duration
}

func NewClient(logger *logging.Logger) *Client {
	return &Client{logger: logger, backoff: DefaultBackoff}
}

// NewClientWithBackoff is used by tests to shrink the reconnect wait.
func NewClientWithBackoff(logger *logging.Logger, backoff time.Duration) *Client {
	return &Client{logger: logger, backoff: backoff}
}

// Handle owns exactly one live connection (or one pending reconnect) at any
// time. Handlers survive reconnects; re-subscribing never duplicates them.
type Handle struct {
	ID     string
	config ChannelConfig
	logger *logging.Logger

	mu       sync.Mutex
	state    State
	handlers map[string][]Handler
	conn     Conn

	backoff time.Duration
	done    chan struct{}
	once    sync.Once
}

// Subscribe opens the channel and returns immediately; connection
// establishment (and every reconnect) happens on the handle's own
// goroutine, so the caller is never blocked and never sees a dial error.
func (c *Client) Subscribe(config ChannelConfig) *Handle {
	h := &Handle{
		ID:       uuid.NewString(),
		config:   config,
		logger:   c.logger,
		state:    StateConnecting,
		handlers: make(map[string][]Handler),
		backoff:  c.backoff,
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

// On registers a handler for one envelope type. Envelopes with no
// registered handler are logged and dropped.
func (h *Handle) On(eventType string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[eventType] = append(h.handlers[eventType], fn)
}

// State reports the connection state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Close tears the channel down. Idempotent: closing an already-closed
// handle is a no-op and never triggers a new connection.
func (h *Handle) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		h.state = StateClosed
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
}

func (h *Handle) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-h.done
		cancel()
	}()

	for {
		if h.closed() {
			return
		}

		h.setState(StateConnecting)
		conn, err := h.config.Dial(ctx)
		if err != nil {
			h.logger.Error(fmt.Sprintf("channel %s: connect failed: %v", h.config.Name, err))
			if !h.waitBackoff() {
				return
			}
			continue
		}

		h.mu.Lock()
		if h.state == StateClosed {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.conn = conn
		h.state = StateOpen
		h.mu.Unlock()

		h.readLoop(conn)

		h.mu.Lock()
		if h.conn == conn {
			h.conn = nil
		}
		closed := h.state == StateClosed
		h.mu.Unlock()
		conn.Close()

		if closed {
			return
		}

		h.setState(StateError)
		h.logger.Info(fmt.Sprintf("channel %s: connection lost, retrying in %v", h.config.Name, h.backoff))
		if !h.waitBackoff() {
			return
		}
	}
}

func (h *Handle) readLoop(conn Conn) {
	for {
		env, err := conn.Read()
		if err != nil {
			return
		}
		h.dispatch(env)
	}
}

func (h *Handle) dispatch(env Envelope) {
	h.mu.Lock()
	fns := h.handlers[env.Type]
	h.mu.Unlock()

	if len(fns) == 0 {
		h.logger.Info(fmt.Sprintf("channel %s: dropping message of unknown type %q", h.config.Name, env.Type))
		return
	}
	for _, fn := range fns {
		fn(env)
	}
}

// waitBackoff sleeps for the fixed backoff; false means the handle was
// closed while waiting and the reconnect is abandoned.
func (h *Handle) waitBackoff() bool {
	t := time.NewTimer(h.backoff)
	defer t.Stop()
	select {
	case <-h.done:
		return false
	case <-t.C:
		return true
	}
}

func (h *Handle) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	if h.state != StateClosed {
		h.state = s
	}
	h.mu.Unlock()
}
