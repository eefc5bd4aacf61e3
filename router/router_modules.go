package router

import (
	"net/http"

	"emperror.dev/errors"
	"github.com/gin-gonic/gin"

	"github.com/priyxstudio/examination/module"
	"github.com/priyxstudio/examination/router/middleware"
)

// getModules returns the codes of every module.
// @Summary List modules
// @Tags Modules
// @Produce json
// @Success 200 {object} router.ModuleListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules [get]
func getModules(c *gin.Context) {
	codes, err := middleware.ExtractService(c).GetModuleList(c.Request.Context())
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, ModuleListResponse{Data: codes})
}

// postCreateModule creates a new module.
// @Summary Create module
// @Tags Modules
// @Accept json
// @Produce json
// @Param module body router.CreateModuleRequest true "Module"
// @Success 201 {object} router.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules [post]
func postCreateModule(c *gin.Context) {
	var req CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.Wrap(err, "invalid request body"), http.StatusBadRequest))
		return
	}

	msg, err := middleware.ExtractService(c).CreateModule(c.Request.Context(), &req)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: msg})
}

// getModule returns a single module.
// @Summary Get module
// @Tags Modules
// @Produce json
// @Param module path string true "Module code"
// @Success 200 {object} models.Module
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module} [get]
func getModule(c *gin.Context) {
	m, err := middleware.ExtractService(c).GetModuleByID(c.Request.Context(), c.Param("module"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// getModuleExists reports whether a module code is in use.
// @Summary Check module exists
// @Tags Modules
// @Produce json
// @Param module path string true "Module code"
// @Success 200 {object} router.ModuleExistsResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/exists [get]
func getModuleExists(c *gin.Context) {
	ok, err := middleware.ExtractService(c).IsModuleExists(c.Request.Context(), c.Param("module"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, ModuleExistsResponse{Exists: ok})
}

// putModuleResults replaces the results of a module and releases them.
// @Summary Update results
// @Tags Modules
// @Accept json
// @Produce json
// @Param module path string true "Module code"
// @Param results body router.ResultsRequest true "Results"
// @Success 200 {object} router.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/results [put]
func putModuleResults(c *gin.Context) {
	var req ResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.Wrap(err, "invalid request body"), http.StatusBadRequest))
		return
	}

	msg, err := middleware.ExtractService(c).UpdateResults(c.Request.Context(), module.ResultUpdate{
		ModuleCode: c.Param("module"),
		UserID:     req.UserID,
		Results:    req.Results,
	})
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// postModuleRegister registers a student to a module.
// @Summary Register to module
// @Tags Modules
// @Accept json
// @Produce json
// @Param module path string true "Module code"
// @Param user body router.UserRequest true "Student"
// @Success 200 {object} router.RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/register [post]
func postModuleRegister(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.Wrap(err, "invalid request body"), http.StatusBadRequest))
		return
	}

	ok, err := middleware.ExtractService(c).RegisterToModule(c.Request.Context(), req.UserID, c.Param("module"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, RegisterResponse{Registered: ok})
}

// postModuleReCorrection places a re-correction request for a student.
// @Summary Request re-correction
// @Tags Modules
// @Accept json
// @Produce json
// @Param module path string true "Module code"
// @Param user body router.UserRequest true "Student"
// @Success 200 {object} router.MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/recorrection [post]
func postModuleReCorrection(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.Wrap(err, "invalid request body"), http.StatusBadRequest))
		return
	}

	msg, err := middleware.ExtractService(c).RequestReCorrection(c.Request.Context(), req.UserID, c.Param("module"))
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// postModuleMessage sends a message from an admin to every registered student.
// The response lists the outcome per student.
// @Summary Message module students
// @Tags Modules
// @Accept json
// @Produce json
// @Param module path string true "Module code"
// @Param message body router.ModuleMessageRequest true "Message"
// @Success 200 {object} module.DeliveryReport
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/modules/{module}/messages [post]
func postModuleMessage(c *gin.Context) {
	var req ModuleMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.CaptureAndAbort(c, middleware.NewError(errors.Wrap(err, "invalid request body"), http.StatusBadRequest))
		return
	}

	report, err := middleware.ExtractService(c).CreateModuleMessage(c.Request.Context(), c.Param("module"), req.AuthorID, req.Message)
	if err != nil {
		middleware.CaptureAndAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
