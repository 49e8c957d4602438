// Package link maintains a durable, reconnecting bidirectional JSON message
// channel to the dispatcher.
package link

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"execagent/internal/logging"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is one of the Link's connection states.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Inbound is a decoded frame received from the dispatcher, still carrying
// its raw bytes for type-specific decoding by the caller.
type Inbound struct {
	Type string
	Raw  json.RawMessage
}

// Link owns the single websocket connection to the dispatcher.
type Link struct {
	url            string
	headers        http.Header
	reconnectDelay time.Duration

	mu    sync.RWMutex
	state State
	conn  *websocket.Conn

	Inbound chan Inbound

	onConnect func()
}

// New builds a Link that will dial url with the given headers (e.g. a
// bearer Authorization header), reconnecting after reconnectDelay whenever
// the socket drops.
func New(url string, headers http.Header, reconnectDelay time.Duration) *Link {
	if reconnectDelay <= 0 {
		reconnectDelay = time.Second
	}
	return &Link{
		url:            url,
		headers:        headers,
		reconnectDelay: reconnectDelay,
		Inbound:        make(chan Inbound, 64),
	}
}

// OnConnect registers a callback invoked (synchronously, on the Link's own
// goroutine) immediately after each successful connect, before any frame is
// read. Typically used to emit the register message.
func (l *Link) OnConnect(fn func()) {
	l.onConnect = fn
}

// State returns the current connection state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Run drives the connect/reconnect loop until ctx is cancelled. It should be
// invoked in its own goroutine.
func (l *Link) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		l.connectAndServe(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Link) connectAndServe(ctx context.Context) {
	l.setState(Connecting)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.url, l.headers)
	if err != nil {
		logging.L().Warn("link: connect failed", zap.Error(err), zap.String("url", l.url))
		l.setState(Disconnected)
		return
	}

	l.mu.Lock()
	l.conn = conn
	l.state = Connected
	l.mu.Unlock()
	logging.L().Info("link: connected", zap.String("url", l.url))

	if l.onConnect != nil {
		l.onConnect()
	}

	l.readLoop(conn)

	l.mu.Lock()
	l.conn = nil
	l.state = Disconnected
	l.mu.Unlock()
	logging.L().Warn("link: disconnected, will reconnect", zap.Duration("delay", l.reconnectDelay))
}

func (l *Link) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			logging.L().Warn("link: received malformed frame", zap.Error(err))
			continue
		}
		if env.Type == "" {
			logging.L().Warn("link: received frame with no type field")
			continue
		}

		l.Inbound <- Inbound{Type: env.Type, Raw: data}
	}
}

// Send marshals v to JSON and writes it to the socket. If the Link is not
// Connected, the message is silently dropped — the agent never buffers
// unsent messages across reconnects.
func (l *Link) Send(v interface{}) {
	l.mu.RLock()
	conn := l.conn
	connected := l.state == Connected
	l.mu.RUnlock()

	if !connected || conn == nil {
		return
	}

	if err := conn.WriteJSON(v); err != nil {
		logging.L().Warn("link: send failed, frame dropped", zap.Error(err))
	}
}

// Close shuts down the current connection, if any.
func (l *Link) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		_ = l.conn.Close()
	}
	l.state = Disconnected
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
