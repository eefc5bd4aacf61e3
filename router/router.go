package router

import (
	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/messages"
	"github.com/priyxstudio/examination/module"
	"github.com/priyxstudio/examination/router/middleware"
)

// Configure configures the routing infrastructure for this daemon instance.
func Configure(svc *module.Service, inbox messages.Inbox) *gin.Engine {
	gin.SetMode("release")

	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(config.Get().Api.TrustedProxies); err != nil {
		panic(errors.WithStack(err))
	}
	router.MaxMultipartMemory = 8 << 20
	router.Use(middleware.AttachRequestID(), middleware.CaptureErrors())
	if rl := config.Get().Api.RateLimit; rl.Enabled {
		router.Use(middleware.RateLimit(rl.RequestsPerSecond, rl.Burst))
	}
	router.Use(middleware.AttachService(svc), middleware.AttachInbox(inbox))
	// This should still dump requests in debug mode since it does help with
	// understanding the request lifecycle and quickly seeing what was called
	// leading to the logs.
	router.Use(gin.LoggerWithFormatter(func(params gin.LogFormatterParams) string {
		log.WithFields(log.Fields{
			"client_ip":  params.ClientIP,
			"status":     params.StatusCode,
			"latency":    params.Latency,
			"request_id": params.Keys["request_id"],
		}).Debugf("%s %s", params.MethodColor()+params.Method+params.ResetColor(), params.Path)

		return ""
	}))

	// Public documentation endpoints
	if config.Get().Api.Docs.Enabled {
		registerDocumentationRoutes(router)
	}

	router.GET("/api/system", getSystemInformation)
	router.GET("/api/system/utilization", getSystemUtilization)

	router.GET("/api/modules", getModules)
	router.POST("/api/modules", postCreateModule)

	m := router.Group("/api/modules/:module")
	{
		m.GET("", getModule)
		m.GET("/exists", getModuleExists)
		m.PUT("/results", putModuleResults)
		m.POST("/register", postModuleRegister)
		m.POST("/recorrection", postModuleReCorrection)
		m.POST("/messages", postModuleMessage)
		m.GET("/archive", getModuleArchive)

		files := m.Group("/files")
		{
			files.GET("", getModuleFiles)
			files.POST("", postModuleFiles)
			files.GET("/:file", getModuleFile)
			files.DELETE("/:file", deleteModuleFile)
		}
	}

	users := router.Group("/api/users/:user")
	{
		users.GET("/modules", getUserModules)
		users.GET("/messages", getUserMessages)
	}

	return router
}
