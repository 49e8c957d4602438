package link

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLinkConnectsAndTransitionsToConnected(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	l := New(wsURL(t, srv), nil, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Run(ctx)

	require.Eventually(t, func() bool { return l.State() == Connected }, time.Second, 5*time.Millisecond)
}

func TestLinkSendDropsWhenDisconnected(t *testing.T) {
	l := New("ws://127.0.0.1:0/unreachable", nil, time.Hour)
	assert.Equal(t, Disconnected, l.State())
	assert.NotPanics(t, func() { l.Send(map[string]string{"type": "register"}) })
}

func TestLinkOnConnectFiresOnEachConnection(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	l := New(wsURL(t, srv), nil, 10*time.Millisecond)
	count := 0
	l.OnConnect(func() { count++ })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.Eventually(t, func() bool { return count >= 1 }, time.Second, 5*time.Millisecond)

	// Dropping the connection makes Run reconnect, which fires OnConnect again.
	l.Close()
	require.Eventually(t, func() bool { return count >= 2 }, time.Second, 5*time.Millisecond)
}

func TestLinkReceivesInboundFrames(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	l := New(wsURL(t, srv), nil, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.Eventually(t, func() bool { return l.State() == Connected }, time.Second, 5*time.Millisecond)

	l.Send(map[string]string{"type": "task"})

	select {
	case in := <-l.Inbound:
		assert.Equal(t, "task", in.Type)
	case <-time.After(time.Second):
		t.Fatal("expected inbound echo frame")
	}
}
