package wsnotify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type client struct {
	conn     *websocket.Conn
	tenantID string
}

// WebSocketManager fans cache invalidation events out to the browser
// clients of each tenant.
type WebSocketManager struct {
	clients map[*websocket.Conn]client
	lock    sync.Mutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func Upgrader() *websocket.Upgrader {
	return &upgrader
}

func NewManager() *WebSocketManager {
	return &WebSocketManager{clients: make(map[*websocket.Conn]client)}
}

var Manager = NewManager()

func (m *WebSocketManager) AddClient(conn *websocket.Conn, tenantID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.clients[conn] = client{conn: conn, tenantID: tenantID}
}

func (m *WebSocketManager) RemoveClient(conn *websocket.Conn) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.clients, conn)
}

func (m *WebSocketManager) ClientCount() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.clients)
}

// Broadcast writes event to every client of tenantID. Writes are
// serialized; clients that fail to receive are dropped.
func (m *WebSocketManager) Broadcast(tenantID string, event interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for conn, c := range m.clients {
		if c.tenantID != tenantID {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

type InvalidatePayload struct {
	Keys     []string `json:"keys,omitempty"`
	Prefixes []string `json:"prefixes,omitempty"`
	At       string   `json:"at"`
}

type InvalidateEvent struct {
	Type    string            `json:"type"`
	Payload InvalidatePayload `json:"payload"`
}

// SendInvalidateEvent tells a tenant's clients which cached queries are stale.
func (m *WebSocketManager) SendInvalidateEvent(tenantID string, keys, prefixes []string) {
	event := InvalidateEvent{
		Type: "invalidate",
		Payload: InvalidatePayload{
			Keys:     keys,
			Prefixes: prefixes,
			At:       time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	m.Broadcast(tenantID, event)
}
