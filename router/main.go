package router

import (
	"embed"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/yszxh/nano-image-generator/common/logger"
	"github.com/yszxh/nano-image-generator/controller"
)

func SetRouter(router *gin.Engine, buildFS embed.FS, server *controller.Server) {
	SetApiRouter(router, server)

	if swaggerURL := os.Getenv("SWAGGER_JSON_URL"); swaggerURL != "" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(
			swaggerFiles.Handler,
			ginSwagger.URL(swaggerURL),
		))
		logger.SysLog(fmt.Sprintf("Swagger UI enabled at /swagger/index.html (doc: %s)", swaggerURL))
	}

	SetWebRouter(router, buildFS)
}
