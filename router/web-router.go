package router

import (
	"embed"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/logger"
)

func SetWebRouter(router *gin.Engine, buildFS embed.FS) {
	indexPageData, err := buildFS.ReadFile("web/build/index.html")
	if err != nil {
		logger.FatalLog("failed to read embedded index.html: " + err.Error())
	}

	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(static.Serve("/", common.EmbedFolder(buildFS, "web/build")))
	router.NoRoute(func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPageData)
	})
}
