// Package api provides the HTTP handlers and routes for media listing,
// conversion sessions and host statistics.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/library"
	errs "github.com/mantonx/streamin/internal/modules/transcodingmodule/errors"
)

// DefaultPushInterval is how often the websocket feed sends progress.
const DefaultPushInterval = time.Second

// Dirs are the media directories exposed by the listing endpoints.
type Dirs struct {
	Unprocessed string
	Processed   string
}

// APIHandler handles HTTP requests for the transcoding module.
type APIHandler struct {
	media    MediaLister
	sessions SessionService
	sampler  ResourceSampler
	dirs     Dirs
	logger   hclog.Logger

	wsUpgrader   websocket.Upgrader
	pushInterval time.Duration
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(media MediaLister, sessions SessionService, sampler ResourceSampler, dirs Dirs, logger hclog.Logger) *APIHandler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &APIHandler{
		media:    media,
		sessions: sessions,
		sampler:  sampler,
		dirs:     dirs,
		logger:   logger.Named("api"),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		pushInterval: DefaultPushInterval,
	}
}

// processRequest is the body of POST /media/process.
type processRequest struct {
	ID   string `json:"id"`
	Dash bool   `json:"dash"`
}

var notFound = gin.H{"error": "Not found"}

// Root handles GET /
func (h *APIHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"item": "Hello, World!"})
}

// ListUnprocessed handles GET /media/unprocessed
//
// Response: [{"id", "video_codec", "audio_codec", "meta_title", "file_title", "duration"}]
func (h *APIHandler) ListUnprocessed(c *gin.Context) {
	h.listDir(c, h.dirs.Unprocessed)
}

// ListProcessed handles GET /media/processed
//
// Each entry describes the manifest.mpd of one package directory.
func (h *APIHandler) ListProcessed(c *gin.Context) {
	h.listDir(c, h.dirs.Processed)
}

func (h *APIHandler) listDir(c *gin.Context, dir string) {
	items, err := h.media.List(c.Request.Context(), dir)
	if err != nil {
		h.logger.Error("failed to list media", "dir", dir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list media"})
		return
	}
	if items == nil {
		items = []library.MediaInfo{}
	}
	c.JSON(http.StatusOK, items)
}

// ProcessMedia handles POST /media/process
//
// Request body:
//
//	{"id": "<url-safe base64 of the media path>", "dash": true}
//
// Responds 201 with the session id in both the Location header and the
// body. Unknown media, media outside the unprocessed directory and requests
// without dash all respond 404.
func (h *APIHandler) ProcessMedia(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if !req.Dash {
		c.JSON(http.StatusNotFound, notFound)
		return
	}

	sess, err := h.sessions.CreateDASH(c.Request.Context(), req.ID)
	if err != nil {
		h.respondError(c, "create session", err)
		return
	}

	c.Header("Location", sess.ID)
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

// respondError maps domain errors to status codes.
func (h *APIHandler) respondError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, errs.ErrMediaNotFound), errors.Is(err, errs.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, notFound)
	case errors.Is(err, errs.ErrDirectoryExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		switch errs.GetType(err) {
		case errs.ErrorTypeProbe, errs.ErrorTypeConfig, errs.ErrorTypeValidation:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			h.logger.Error("request failed", "action", action, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}
