package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/router/middleware"
	"github.com/priyxstudio/examination/system"
)

// getSystemInformation returns information about the host and this daemon.
// @Summary System information
// @Tags System
// @Produce json
// @Success 200 {object} system.Information
// @Failure 500 {object} ErrorResponse
// @Router /api/system [get]
func getSystemInformation(c *gin.Context) {
	i, err := system.GetSystemInformation(c.Request.Context())
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, i)
}

// getSystemUtilization returns the current host load and the disk usage of
// the upload directory.
// @Summary System utilization
// @Tags System
// @Produce json
// @Success 200 {object} system.Utilization
// @Failure 500 {object} ErrorResponse
// @Router /api/system/utilization [get]
func getSystemUtilization(c *gin.Context) {
	u, err := system.GetSystemUtilization(c.Request.Context(), config.Get().System.Data)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
