package status

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Hub) *websocket.Conn {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(time.Second))
	return conn
}

func TestLastEventReplay(t *testing.T) {
	h := NewHub()
	h.Info("stage %s", "loaded")

	conn := serve(t, h)
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, INFO, e.Type)
	assert.Equal(t, "stage loaded", e.Message)
	assert.False(t, e.Time.IsZero())
}

func TestPublishAndUnregister(t *testing.T) {
	h := NewHub()
	conn := serve(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	h.Edit("/World/Cube", "moved %d", 1)
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, EDIT, e.Type)
	assert.Equal(t, "/World/Cube", e.Path)
	assert.Equal(t, "moved 1", e.Message)

	conn.Close()
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 10*time.Millisecond)
}
