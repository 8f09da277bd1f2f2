package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StreamSession handles GET /media/process/session/:id/ws
//
// Upgrades to a websocket and pushes the session Info as JSON every push
// interval. The final message carries the terminal state, after which the
// server closes the connection.
func (h *APIHandler) StreamSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "stream session", err)
		return
	}

	conn, err := h.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session_id", sess.ID, "error", err)
		return
	}
	defer conn.Close()

	// the read loop only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	for {
		info := sess.Info()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(info); err != nil {
			h.logger.Debug("websocket write failed", "session_id", sess.ID, "error", err)
			return
		}
		if info.State.IsTerminal() {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(info.State)),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ticker.C:
		case <-sess.Done():
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
