package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSystemInfo handles GET /system
// Returns host CPU, memory, load and media directory disk usage.
func (h *APIHandler) GetSystemInfo(c *gin.Context) {
	info, err := h.sampler.GetSystemInfo(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to sample system", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetSessionResources handles GET /media/process/session/:id/resources
// Returns resource use of the session's running stage process. Responds 409
// when no stage process is running.
func (h *APIHandler) GetSessionResources(c *gin.Context) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, "session resources", err)
		return
	}

	info := sess.Info()
	pid := sess.PID()
	if pid == 0 || info.State.IsTerminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "No stage is running", "state": info.State})
		return
	}

	stats, err := h.sampler.ProcessStats(c.Request.Context(), pid)
	if err != nil {
		h.logger.Debug("failed to sample stage process", "session_id", sess.ID, "pid", pid, "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": "Stage process is not available", "state": info.State})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"stage":      info.Stage,
		"stage_kind": info.StageKind,
		"process":    stats,
	})
}
