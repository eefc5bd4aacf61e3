package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docsSwagger "github.com/priyxstudio/examination/docs/swagger"
)

const (
	docsPrefix  = "/api/docs"
	openapiPath = docsPrefix + "/openapi.json"
	uiIndex     = docsPrefix + "/ui/index.html"
)

// registerDocumentationRoutes serves the generated OpenAPI document and a
// Swagger UI that reads it.
func registerDocumentationRoutes(router gin.IRouter) {
	docs := router.Group(docsPrefix)

	docs.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(docsSwagger.SwaggerInfo.ReadDoc()))
	})

	toIndex := func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, uiIndex)
	}
	docs.GET("", toIndex)
	docs.GET("/ui", toIndex)
	docs.GET("/ui/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL(openapiPath),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}
