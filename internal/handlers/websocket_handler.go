package handlers

import (
	"net/http"
	"strings"

	"crm-contacts/internal/wsnotify"
)

// WebSocketHandler registers the connection for the tenant's cache
// invalidation events. Browsers cannot set headers on upgrade requests,
// so the tenant may also come from the tenant_id query parameter.
func WebSocketHandler(manager *wsnotify.WebSocketManager, defaultTenant string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(tenantHeader))
		if tenantID == "" {
			tenantID = strings.TrimSpace(r.URL.Query().Get("tenant_id"))
		}
		if tenantID == "" {
			tenantID = defaultTenant
		}

		conn, err := wsnotify.Upgrader().Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.AddClient(conn, tenantID)
		defer func() {
			manager.RemoveClient(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
