package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/helper"
	"github.com/yszxh/nano-image-generator/common/logger"
	"github.com/yszxh/nano-image-generator/relay/util"
)

// ProxyImage 同源图片代理：GET /api/proxy-image?url=...
func (s *Server) ProxyImage(c *gin.Context) {
	url := c.Query("url")
	logger.Debugf(c.Request.Context(), "proxy image request: %s", url)
	if url == "" {
		badRequest(c, "缺少图片 URL")
		return
	}
	s.proxyMedia(c, url, "image/png", "")
}

// ProxyVideo 同源视频代理，兼容 GET 查询参数和 POST JSON 两种形式
func (s *Server) ProxyVideo(c *gin.Context) {
	url := c.Query("url")
	if url == "" && c.Request.Method == http.MethodPost {
		var body struct {
			Url string `json:"url"`
		}
		if err := common.UnmarshalBodyReusable(c, &body); err == nil {
			url = body.Url
		}
	}
	logger.Debugf(c.Request.Context(), "proxy video request: %s", url)
	if url == "" {
		badRequest(c, "缺少视频 URL")
		return
	}
	s.proxyMedia(c, url, "video/mp4", `attachment; filename="nano-video.mp4"`)
}

func (s *Server) proxyMedia(c *gin.Context, url string, fallbackContentType string, disposition string) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		badRequest(c, "URL 必须是 http(s) 地址")
		return
	}

	media, err := util.FetchMedia(c.Request.Context(), url)
	if err != nil {
		logger.Errorf(c.Request.Context(), "media proxy failed: %s", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "媒体下载失败"})
		return
	}

	contentType := helper.AssignOrDefault(media.ContentType, fallbackContentType)
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", config.ProxyCacheSeconds))
	if disposition != "" {
		c.Header("Content-Disposition", disposition)
	}
	c.Data(http.StatusOK, contentType, media.Data)
}
