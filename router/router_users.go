package router

import (
	"net/http"

	"emperror.dev/errors"
	"github.com/gin-gonic/gin"

	"github.com/priyxstudio/examination/router/middleware"
)

// getUserModules returns the modules a user is registered to, or administers
// when role is "admin".
// @Summary List user modules
// @Tags Users
// @Produce json
// @Param user path string true "User id"
// @Param role query string false "student (default) or admin"
// @Success 200 {object} router.ModuleListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/users/{user}/modules [get]
func getUserModules(c *gin.Context) {
	svc := middleware.ExtractService(c)
	user := c.Param("user")

	var codes []string
	var err error
	switch role := c.DefaultQuery("role", "student"); role {
	case "student":
		codes, err = svc.GetRegisteredModules(c.Request.Context(), user)
	case "admin":
		codes, err = svc.GetAdminModules(c.Request.Context(), user)
	default:
		err = middleware.NewError(errors.Errorf("unknown role %q", role), http.StatusBadRequest)
	}
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, ModuleListResponse{Data: codes})
}

// getUserMessages returns the messages delivered to a user, oldest first.
// @Summary List user messages
// @Tags Users
// @Produce json
// @Param user path string true "User id"
// @Success 200 {object} router.InboxResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/users/{user}/messages [get]
func getUserMessages(c *gin.Context) {
	msgs, err := middleware.ExtractInbox(c).List(c.Request.Context(), c.Param("user"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, InboxResponse{Data: msgs})
}
