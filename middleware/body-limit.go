package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common/config"
)

// BodyLimit 限制请求体大小，data-URI 形式的图片上传大约膨胀 4/3 倍
func BodyLimit() gin.HandlerFunc {
	maxBytes := int64(config.MaxUploadMB) * 1024 * 1024 * 4 / 3

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWithMessage(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
