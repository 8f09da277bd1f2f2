package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 50

// ListSessions handles GET /media/process/session
//
// Response: {"<session id>": Info, ...}
func (h *APIHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.List())
}

// GetSession handles GET /media/process/session/:id
//
// Response:
//
//	{
//	  "state": "running",
//	  "percent_complete": 58.3,
//	  "stage": 4,
//	  "max_stages": 6,
//	  "stage_kind": "fragmenting",
//	  "detail": {"frame": 1, "fps": 0, "bitrate": 512.3, "total_size": 48, "time": 5.0, "length": 10.0},
//	  "logs": {"stdout": "...", "stderr": "..."}
//	}
func (h *APIHandler) GetSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "get session", err)
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

// CancelSession handles DELETE /media/process/session/:id
// Stops the running stage and skips the remaining ones.
func (h *APIHandler) CancelSession(c *gin.Context) {
	sess, err := h.sessions.Cancel(c.Param("id"))
	if err != nil {
		h.respondError(c, "cancel session", err)
		return
	}
	c.JSON(http.StatusAccepted, sess.Info())
}

// ListHistory handles GET /media/process/history?limit=N
// Returns persisted job records, most recent first.
func (h *APIHandler) ListHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	jobs, err := h.sessions.History(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, "list history", err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}
