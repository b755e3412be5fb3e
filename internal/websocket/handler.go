package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/listkeep/listkeep/internal/auth"
)

// HandleWebSocket upgrades the connection and runs it as a hub client for
// the session's user. The route sits behind RequireAuth, so a missing
// identity means a broken middleware chain rather than a client error.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, ac.UserID)
		client.Run(r.Context())
	}
}
