package common

import (
	"bytes"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
)

const KeyRequestBody = "key_request_body"

func GetRequestBody(c *gin.Context) ([]byte, error) {
	requestBody, _ := c.Get(KeyRequestBody)
	if requestBody != nil {
		return requestBody.([]byte), nil
	}
	requestBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	_ = c.Request.Body.Close()
	c.Set(KeyRequestBody, requestBody)
	return requestBody.([]byte), nil
}

func UnmarshalBodyReusable(c *gin.Context, v any) error {
	requestBody, err := GetRequestBody(c)
	if err != nil {
		return err
	}

	contentType := c.Request.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		return c.ShouldBindJSON(v)
	}

	// 没有 Content-Type 时先尝试 JSON，失败再按表单绑定
	c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
	if err := c.ShouldBindJSON(v); err == nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
	return c.ShouldBind(v)
}

func SetEventStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}
