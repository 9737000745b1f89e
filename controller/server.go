package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/logger"
	"github.com/yszxh/nano-image-generator/common/storage"
	"github.com/yszxh/nano-image-generator/model"
	"github.com/yszxh/nano-image-generator/relay/driver"
	relaymodel "github.com/yszxh/nano-image-generator/relay/model"
	"github.com/yszxh/nano-image-generator/relay/util"
	"github.com/yszxh/nano-image-generator/service"
)

// Server 集中持有各 handler 依赖的运行期对象，替代散落的全局状态
type Server struct {
	Tasks *service.TaskManager

	// NewDriver 每次生成请求新建一个 driver，测试时可替换
	NewDriver func() *driver.Driver
}

func NewServer(tasks *service.TaskManager) *Server {
	return &Server{
		Tasks:     tasks,
		NewDriver: driver.New,
	}
}

// resolveApiKey 前端传的 key 优先，否则用服务器侧配置
func resolveApiKey(requestKey string) (string, bool) {
	if requestKey != "" {
		return requestKey, true
	}
	if config.ServerApiKey != "" {
		return config.ServerApiKey, true
	}
	return "", false
}

// generationResponse 与前端约定的成功响应
type generationResponse struct {
	Success      bool   `json:"success"`
	Id           string `json:"id"`
	TaskId       string `json:"taskId,omitempty"`
	Prompt       string `json:"prompt"`
	ImageBase64  string `json:"imageBase64,omitempty"`
	ImageUrl     string `json:"imageUrl,omitempty"`
	VideoUrl     string `json:"videoUrl,omitempty"`
	PromptTokens int    `json:"promptTokens,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// runGeneration 生成请求的公共路径。?stream=true 时以 SSE 推送进度，
// 否则同步等待并返回 JSON。
func (s *Server) runGeneration(c *gin.Context, action string, request *driver.Request, prompt string) {
	task, err := s.Tasks.Begin(action, string(request.Kind), prompt)
	if err != nil {
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": err.Error()})
		return
	}

	if c.Query("stream") == "true" {
		s.runStreaming(c, task, request, prompt, action)
		return
	}

	response, relayErr := s.execute(task.Id, request, prompt, action)
	if relayErr != nil {
		s.Tasks.Fail(task.Id, relayErr.Message)
		logger.Errorf(c.Request.Context(), "%s failed: %s (%s)", action, relayErr.Message, relayErr.Type)
		c.JSON(relayErr.StatusCode, gin.H{"success": false, "error": relayErr.Message, "type": relayErr.Type})
		return
	}
	s.Tasks.Finish(task.Id, response.Id)
	response.TaskId = task.Id
	c.JSON(http.StatusOK, response)
}

// runStreaming 用 SSE 把进度和最终结果推给前端，最后跟一个 [DONE] 哨兵。
// 客户端断开时取消 driver 并靠 streamDone 解除生产端阻塞，
// 任务必定走到 Finish/Fail，不会占着并发槽不放。
func (s *Server) runStreaming(c *gin.Context, task *service.Task, request *driver.Request, prompt string, action string) {
	dataChan := make(chan string)
	stopChan := make(chan bool, 1)
	// 消费端退出（正常结束或客户端断开）后关闭
	streamDone := make(chan struct{})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	poolCtx := context.WithValue(context.Background(), "stop_chan", stopChan)
	common.TaskCtxGo(poolCtx, func() {
		send := func(data string) {
			select {
			case dataChan <- data:
			case <-streamDone:
			}
		}
		onProgress := func(p driver.Progress) {
			s.Tasks.Progress(task.Id, p.Stage, p.Percent)
			payload, _ := json.Marshal(gin.H{"taskId": task.Id, "stage": p.Stage, "percent": p.Percent})
			send("data: " + string(payload))
		}
		response, relayErr := s.executeWithProgress(ctx, task.Id, request, prompt, action, onProgress)
		if relayErr != nil {
			s.Tasks.Fail(task.Id, relayErr.Message)
			payload, _ := json.Marshal(gin.H{"success": false, "taskId": task.Id, "error": relayErr.Message, "type": relayErr.Type})
			send("data: " + string(payload))
		} else {
			s.Tasks.Finish(task.Id, response.Id)
			response.TaskId = task.Id
			payload, _ := json.Marshal(response)
			send("data: " + string(payload))
		}
		send("data: [DONE]")
		common.SafeSendBool(stopChan, true)
	})

	common.SetEventStreamHeaders(c)
	c.Stream(func(w io.Writer) bool {
		select {
		case data := <-dataChan:
			c.Render(-1, common.CustomEvent{Data: data})
			return true
		case <-ctx.Done():
			return false
		case <-stopChan:
			return false
		}
	})
	close(streamDone)
}

func (s *Server) execute(taskId string, request *driver.Request, prompt string, action string) (*generationResponse, *relaymodel.ErrorWithStatusCode) {
	// 同步路径不随客户端断开取消，结果照常落历史
	return s.executeWithProgress(context.Background(), taskId, request, prompt, action, func(p driver.Progress) {
		s.Tasks.Progress(taskId, p.Stage, p.Percent)
	})
}

// executeWithProgress 跑一次 driver，成功则落历史记录。
// 解析阶段判定失败的请求绝不会产生历史记录。
func (s *Server) executeWithProgress(ctx context.Context, taskId string, request *driver.Request, prompt string, action string, onProgress driver.ProgressFunc) (*generationResponse, *relaymodel.ErrorWithStatusCode) {
	d := s.NewDriver()
	result, relayErr := d.Run(ctx, request, onProgress)
	if relayErr != nil {
		return nil, relayErr
	}

	promptTokens := util.CountTokenText(prompt)
	history := &model.History{
		Prompt:       prompt,
		Kind:         string(request.Kind),
		Action:       action,
		MediaPayload: result.MediaPayload,
		SourceUrl:    result.SourceURL,
		ModelName:    request.Model,
		PromptTokens: promptTokens,
	}

	// 配好对象存储时历史记录只存转存后的 URL，响应里仍是 data-URI
	if request.Kind == relaymodel.MediaKindImage && storage.Enabled() {
		uploadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		storedUrl, err := storage.UploadImage(uploadCtx, result.Data, result.MimeType)
		cancel()
		if err != nil {
			logger.SysError("R2 upload failed, keeping inline payload: " + err.Error())
		} else {
			history.MediaPayload = storedUrl
		}
	}

	if err := model.AddHistory(history); err != nil {
		// 历史保存失败不至于让这次生成作废
		logger.SysError("failed to persist history: " + err.Error())
	}

	response := &generationResponse{
		Success:      true,
		Id:           history.Id,
		Prompt:       prompt,
		PromptTokens: promptTokens,
		CreatedAt:    time.Unix(history.CreatedAt, 0).UTC().Format(time.RFC3339),
	}
	if history.CreatedAt == 0 {
		response.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if request.Kind == relaymodel.MediaKindVideo {
		response.VideoUrl = result.MediaPayload
	} else {
		response.ImageBase64 = result.MediaPayload
		response.ImageUrl = result.SourceURL
	}
	return response, nil
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

func maxUploadBytes() int {
	return config.MaxUploadMB * 1024 * 1024
}

func tooManyReferences() string {
	return fmt.Sprintf("参考图最多 %d 张", config.MaxReferenceImages)
}
