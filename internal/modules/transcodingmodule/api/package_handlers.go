package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/library"
	"github.com/mantonx/streamin/internal/utils"
)

// ServePackageFile serves a manifest, segment or subtitle from a finished
// DASH package under the processed directory. Range requests are honoured
// so players can fetch partial segments.
func (h *APIHandler) ServePackageFile(c *gin.Context) {
	path, err := library.ResolvePackageFile(h.dirs.Processed, c.Param("name"), c.Param("file"))
	if err != nil {
		h.respondError(c, "serve_package_file", err)
		return
	}

	if err := utils.ServeFileWithRange(c.Writer, c.Request, path, utils.PackageContentType(path)); err != nil {
		h.logger.Debug("package file transfer ended early", "path", path, "error", err)
	}
}
