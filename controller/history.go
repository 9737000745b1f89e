package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/model"
	"github.com/yszxh/nano-image-generator/relay/util"
)

// GetHistories 历史记录列表，最新在前
func (s *Server) GetHistories(c *gin.Context) {
	histories, err := model.GetAllHistories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": histories})
}

func (s *Server) GetHistory(c *gin.Context) {
	history, err := model.GetHistoryById(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "记录不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": history})
}

func (s *Server) DeleteHistory(c *gin.Context) {
	history, err := model.GetHistoryById(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "记录不存在"})
		return
	}
	if err := model.DeleteHistoryById(history.Id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	// 记录没了，代理缓存的媒体字节也一并失效
	if history.SourceUrl != "" {
		util.EvictMedia(history.SourceUrl)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) ClearHistories(c *gin.Context) {
	if err := model.ClearHistories(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
