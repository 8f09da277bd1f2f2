package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the module routes under /api/v1 and again at
// the root paths served by earlier releases.
//
//	/media/unprocessed                    - list source media
//	/media/processed                      - list DASH packages
//	/media/package/:name/*file            - packaged manifest and segments
//	/media/process                        - start a conversion
//	/media/process/session[/:id]          - progress snapshots
//	/media/process/session/:id/ws         - progress feed
//	/media/process/session/:id/resources  - stage process statistics
//	/media/process/history                - persisted job records
//	/system                               - host statistics
func RegisterRoutes(router *gin.Engine, handler *APIHandler) {
	router.GET("/", handler.Root)

	registerGroup(router.Group("/api/v1"), handler)
	registerGroup(router.Group(""), handler)
}

func registerGroup(g *gin.RouterGroup, handler *APIHandler) {
	media := g.Group("/media")
	{
		media.GET("/unprocessed", handler.ListUnprocessed)
		media.GET("/processed", handler.ListProcessed)
		media.GET("/package/:name/*file", handler.ServePackageFile)
		media.HEAD("/package/:name/*file", handler.ServePackageFile)

		media.POST("/process", handler.ProcessMedia)
		media.GET("/process/history", handler.ListHistory)
		media.GET("/process/session", handler.ListSessions)
		media.GET("/process/session/:id", handler.GetSession)
		media.DELETE("/process/session/:id", handler.CancelSession)
		media.GET("/process/session/:id/ws", handler.StreamSession)
		media.GET("/process/session/:id/resources", handler.GetSessionResources)
	}

	g.GET("/system", handler.GetSystemInfo)
}
