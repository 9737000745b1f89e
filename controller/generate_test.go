package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yszxh/nano-image-generator/common/config"
	dbmodel "github.com/yszxh/nano-image-generator/model"
	"github.com/yszxh/nano-image-generator/relay/driver"
	"github.com/yszxh/nano-image-generator/relay/util"
	"github.com/yszxh/nano-image-generator/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T, upstreamLines []string) (*Server, *gin.Engine) {
	return setupServerWithUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range upstreamLines {
			fmt.Fprintf(w, "%s\n\n", line)
		}
	}))
}

func setupServerWithUpstream(t *testing.T, upstreamHandler http.Handler) (*Server, *gin.Engine) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&dbmodel.History{}))
	oldDB := dbmodel.DB
	dbmodel.DB = db
	t.Cleanup(func() { dbmodel.DB = oldDB })

	upstream := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstream.Close)

	tasks := service.NewTaskManager(3)
	t.Cleanup(tasks.Close)

	server := &Server{
		Tasks: tasks,
		NewDriver: func() *driver.Driver {
			return &driver.Driver{
				Endpoint:       upstream.URL,
				Client:         http.DefaultClient,
				Timeout:        10 * time.Second,
				EstimatedBytes: 5000,
				ErrorKeywords:  config.GetErrorKeywords(),
				FetchMedia: func(ctx context.Context, url string) (*util.Media, error) {
					return &util.Media{ContentType: "image/png", Data: []byte("png-bytes")}, nil
				},
			}
		},
	}

	engine := gin.New()
	engine.POST("/api/generate", server.Generate)
	engine.POST("/api/edit", server.Edit)
	return server, engine
}

// closeNotifyRecorder 补上 CloseNotify：gin 的 c.Stream 会对底层
// ResponseWriter 做 http.CloseNotifier 断言，裸 ResponseRecorder 会 panic
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func postJSON(engine *gin.Engine, path string, body string) *httptest.ResponseRecorder {
	recorder := &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(recorder, req)
	return recorder.ResponseRecorder
}

func TestGenerateSync(t *testing.T) {
	_, engine := setupServer(t, []string{
		`data: {"choices":[{"delta":{"content":"https://cdn.example.com/out.png"}}]}`,
		`data: [DONE]`,
	})

	recorder := postJSON(engine, "/api/generate", `{"prompt":"a sunset","apiKey":"sk-test"}`)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	body := recorder.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, "data:image/png;base64,")

	count, err := dbmodel.CountHistories()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGenerateStreamingProgress(t *testing.T) {
	_, engine := setupServer(t, []string{
		`data: {"choices":[{"delta":{"content":"https://cdn.example.com/out.png"}}]}`,
		`data: [DONE]`,
	})

	recorder := postJSON(engine, "/api/generate?stream=true", `{"prompt":"a sunset","apiKey":"sk-test"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	// 进度事件、最终结果、终止哨兵依次出现
	assert.Contains(t, body, "🔗 连接服务器...")
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, "data: [DONE]")
}

func TestGenerateStreamClientDisconnectReleasesSlot(t *testing.T) {
	// 上游先吐一个增量然后挂起，模拟生成进行到一半
	server, engine := setupServerWithUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"working\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))

	front := httptest.NewServer(engine)
	defer front.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		front.URL+"/api/generate?stream=true", strings.NewReader(`{"prompt":"a sunset","apiKey":"sk-test"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	// 收到首个进度事件后客户端掉线
	buf := make([]byte, 1)
	_, err = resp.Body.Read(buf)
	require.NoError(t, err)
	cancel()
	resp.Body.Close()

	// 断开后并发槽必须被释放，任务走到终态
	deadline := time.Now().Add(5 * time.Second)
	for server.Tasks.RunningCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("RunningCount() = %d after client disconnect, want 0", server.Tasks.RunningCount())
		}
		time.Sleep(20 * time.Millisecond)
	}
	for _, task := range server.Tasks.Snapshot() {
		assert.NotEqual(t, service.TaskStatusRunning, task.Status)
	}
}

func TestGenerateMissingPrompt(t *testing.T) {
	_, engine := setupServer(t, nil)

	recorder := postJSON(engine, "/api/generate", `{"apiKey":"sk-test"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGenerateNoApiKey(t *testing.T) {
	oldKey := config.ServerApiKey
	config.ServerApiKey = ""
	t.Cleanup(func() { config.ServerApiKey = oldKey })

	_, engine := setupServer(t, nil)
	recorder := postJSON(engine, "/api/generate", `{"prompt":"a sunset"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "API Key")
}

func TestGenerateConcurrencyCap(t *testing.T) {
	server, engine := setupServer(t, nil)

	// 占满三个并发槽
	for i := 0; i < 3; i++ {
		_, err := server.Tasks.Begin("generate", "image", "busy")
		require.NoError(t, err)
	}

	recorder := postJSON(engine, "/api/generate", `{"prompt":"a sunset","apiKey":"sk-test"}`)
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	_, engine := setupServer(t, []string{
		`data: {"error":"model overloaded"}`,
	})

	recorder := postJSON(engine, "/api/generate", `{"prompt":"a sunset","apiKey":"sk-test"}`)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "model overloaded")

	// 失败的请求不产生历史记录
	count, err := dbmodel.CountHistories()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEditTooManyReferences(t *testing.T) {
	_, engine := setupServer(t, nil)

	refs := make([]string, config.MaxReferenceImages+1)
	for i := range refs {
		refs[i] = `"data:image/png;base64,AA=="`
	}
	body := fmt.Sprintf(`{"prompt":"p","apiKey":"k","mainImageBase64":"data:image/png;base64,AA==","referenceImagesBase64":[%s]}`,
		strings.Join(refs, ","))

	recorder := postJSON(engine, "/api/edit", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "参考图")
}

func TestEditInvalidMainImage(t *testing.T) {
	_, engine := setupServer(t, nil)

	recorder := postJSON(engine, "/api/edit", `{"prompt":"p","apiKey":"k","mainImageBase64":"not-a-data-url"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "主图无效")
}
