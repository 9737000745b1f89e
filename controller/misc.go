package controller

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/relay/util"
)

// GetStatus 健康检查，附带进程水位
func (s *Server) GetStatus(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   common.Version,
		"startTime": common.StartTime,
		"tasks":     s.Tasks.RunningCount(),
		"goroutines": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc_mb": m.Alloc / 1024 / 1024,
			"sys_mb":   m.Sys / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
	})
}

// GetConfigStatus 告诉前端服务器侧有没有配好 API Key。
// 带 checkUpstream=true 时顺带用短超时客户端探测上游可达性。
func (s *Server) GetConfigStatus(c *gin.Context) {
	hasServerKey := config.ServerApiKey != ""
	message := "请在前端配置 API Key"
	if hasServerKey {
		message = "服务器已配置 API Key"
	}
	payload := gin.H{
		"hasServerKey": hasServerKey,
		"message":      message,
		"systemName":   config.SystemName,
	}
	if c.Query("checkUpstream") == "true" {
		payload["upstream"] = gin.H{"reachable": upstreamReachable(c)}
	}
	c.JSON(http.StatusOK, payload)
}

// upstreamReachable 只关心 TCP/TLS 通不通，上游对裸 GET 返回什么都算可达
func upstreamReachable(c *gin.Context) bool {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, config.ApiBaseURL, nil)
	if err != nil {
		return false
	}
	resp, err := util.ImpatientHTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
