package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yszxh/nano-image-generator/common/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 前端与 API 同源，代理场景下 Origin 校验交给外层
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GetTasks 进行中与近期完成任务的快照
func (s *Server) GetTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": s.Tasks.Snapshot()})
}

// GetTask 单个任务状态
func (s *Server) GetTask(c *gin.Context) {
	task, ok := s.Tasks.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "任务不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": task})
}

// TaskWS 把任务进度事件实时推给前端。
// 连接建立后先发一份全量快照，之后增量推送事件。
func (s *Server) TaskWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf(c.Request.Context(), "websocket upgrade failed: %s", err.Error())
		return
	}
	defer conn.Close()

	events, cancel := s.Tasks.Subscribe()
	defer cancel()

	if err := conn.WriteJSON(gin.H{"type": "snapshot", "tasks": s.Tasks.Snapshot()}); err != nil {
		return
	}

	// 读协程只为感知客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case event := <-events:
			if err := conn.WriteJSON(gin.H{"type": "event", "event": event}); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
