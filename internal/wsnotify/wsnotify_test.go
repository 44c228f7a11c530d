package wsnotify

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

func dial(t *testing.T, m *WebSocketManager, tenantID string) *websocket.Conn {
	t.Helper()
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader().Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.AddClient(conn, tenantID)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	<-registered
	return conn
}

func TestSendInvalidateEvent_OnlyReachesTenant(t *testing.T) {
	m := NewManager()
	a := dial(t, m, "a")
	b := dial(t, m, "b")
	require.Equal(t, 2, m.ClientCount())

	m.SendInvalidateEvent("a", []string{"groups.list"}, []string{"contacts.list"})

	var event InvalidateEvent
	a.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, a.ReadJSON(&event))
	assert.Equal(t, "invalidate", event.Type)
	assert.Equal(t, []string{"groups.list"}, event.Payload.Keys)
	assert.Equal(t, []string{"contacts.list"}, event.Payload.Prefixes)
	assert.NotEmpty(t, event.Payload.At)

	b.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := b.ReadMessage()
	assert.Error(t, err)
}

func TestRemoveClient(t *testing.T) {
	m := NewManager()
	dial(t, m, "a")
	require.Equal(t, 1, m.ClientCount())

	m.lock.Lock()
	var conn *websocket.Conn
	for c := range m.clients {
		conn = c
	}
	m.lock.Unlock()

	m.RemoveClient(conn)
	assert.Equal(t, 0, m.ClientCount())
}
