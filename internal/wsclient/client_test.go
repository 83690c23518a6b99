package wsclient

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

func newEchoServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
	}))
}

func TestListen_DeliversFramesInOrder(t *testing.T) {
	srv := newEchoServer(t, []string{"first", "second", "third"})
	defer srv.Close()

	cfg := Config{
		BaseURL:     strings.Replace(srv.URL, "http", "ws", 1),
		PhoneNumber: "+15550000000",
	}
	c := New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	frames := c.Listen(ctx)
	var got []string
	for i := 0; i < 3; i++ {
		select {
		case f := <-frames:
			got = append(got, f.Payload)
		case <-ctx.Done():
			t.Fatal("timed out waiting for frames")
		}
	}
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestListen_ReconnectsAfterServerCloses(t *testing.T) {
	var connections int
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		connections++
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		conn.Close()
	}))
	defer srv.Close()

	cfg := Config{
		BaseURL:        strings.Replace(srv.URL, "http", "ws", 1),
		PhoneNumber:    "+15550000000",
		ReconnectDelay: 10 * time.Millisecond,
	}
	c := New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	frames := c.Listen(ctx)
	seen := 0
	for {
		select {
		case <-frames:
			seen++
			if seen >= 2 {
				cancel()
				return
			}
		case <-ctx.Done():
			require.GreaterOrEqual(t, seen, 2, "expected a frame from a second connection")
			return
		}
	}
}

func TestListen_StopsOnContextCancellation(t *testing.T) {
	srv := newEchoServer(t, nil)
	defer srv.Close()

	cfg := Config{
		BaseURL:     strings.Replace(srv.URL, "http", "ws", 1),
		PhoneNumber: "+15550000000",
	}
	c := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	frames := c.Listen(ctx)
	cancel()

	select {
	case _, ok := <-frames:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after cancellation")
	}
}
