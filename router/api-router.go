package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/controller"
	"github.com/yszxh/nano-image-generator/middleware"
)

func SetApiRouter(router *gin.Engine, server *controller.Server) {
	apiRouter := router.Group("/api")
	apiRouter.Use(middleware.CORS())
	{
		apiRouter.GET("/status", server.GetStatus)
		apiRouter.GET("/health", server.GetStatus)
		apiRouter.GET("/config/status", server.GetConfigStatus)

		// 生成路由可能以 SSE 返回进度，不能上 gzip
		generateRouter := apiRouter.Group("")
		generateRouter.Use(middleware.RelayPanicRecover(), middleware.BodyLimit())
		{
			generateRouter.POST("/generate", server.Generate)
			generateRouter.POST("/edit", server.Edit)
			generateRouter.POST("/video/generate", server.GenerateVideo)
			generateRouter.POST("/video/frames", server.GenerateVideoFromFrames)
		}

		apiRouter.GET("/proxy-image", server.ProxyImage)
		apiRouter.GET("/proxy-video", server.ProxyVideo)
		apiRouter.POST("/proxy-video", server.ProxyVideo)

		historyRouter := apiRouter.Group("/history")
		historyRouter.Use(gzip.Gzip(gzip.DefaultCompression))
		{
			historyRouter.GET("", server.GetHistories)
			historyRouter.GET("/:id", server.GetHistory)
			historyRouter.DELETE("/:id", server.DeleteHistory)
			historyRouter.DELETE("", server.ClearHistories)
		}

		apiRouter.GET("/preferences", server.GetPreferences)
		apiRouter.PUT("/preferences", server.UpdatePreferences)

		apiRouter.GET("/tasks", server.GetTasks)
		apiRouter.GET("/tasks/ws", server.TaskWS)
		apiRouter.GET("/tasks/:id", server.GetTask)
	}
}
