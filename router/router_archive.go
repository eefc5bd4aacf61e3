package router

import (
	"net/http"
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/gin-gonic/gin"
	"github.com/mholt/archives"

	"github.com/priyxstudio/examination/router/middleware"
)

// getModuleArchive streams every recorded file of a module as a gzip
// compressed tarball.
// @Summary Download module archive
// @Tags Files
// @Produce application/gzip
// @Param module path string true "Module code"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/archive [get]
func getModuleArchive(c *gin.Context) {
	moduleID := c.Param("module")
	dir, err := moduleDirectory(moduleID)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}

	list, err := middleware.ExtractService(c).GetFileList(c.Request.Context(), moduleID)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}

	// Only archive names that are still recorded and present on disk. A name
	// recorded more than once is archived a single time.
	names := make(map[string]string, len(list))
	for _, name := range list {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		names[p] = name
	}
	if len(names) == 0 {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.New("no files stored for this module"), http.StatusNotFound))
		return
	}

	files, err := archives.FilesFromDisk(c.Request.Context(), nil, names)
	if err != nil {
		middleware.CaptureAndAbort(c, errors.Wrap(err, "router: failed to collect module files"))
		return
	}

	format := archives.CompressedArchive{
		Compression: archives.Gz{Multithreaded: true},
		Archival:    archives.Tar{},
	}
	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", `attachment; filename="`+moduleID+`.tar.gz"`)
	c.Status(http.StatusOK)
	if err := format.Archive(c.Request.Context(), c.Writer, files); err != nil {
		// Headers are already sent, all that is left is to log.
		middleware.ExtractLogger(c).WithField("error", err).WithField("module", moduleID).Error("failed to stream module archive")
		_ = c.Error(err)
	}
}
