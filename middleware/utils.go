package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common/helper"
	"github.com/yszxh/nano-image-generator/common/logger"
)

func abortWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   helper.MessageWithRequestId(message, c.GetString(logger.RequestIdKey)),
	})
	c.Abort()
	logger.Error(c.Request.Context(), message)
}
