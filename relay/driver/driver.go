// Package driver 驱动一次完整的生成请求：
// 发起上游流式调用 → 增量读响应体并上报进度 → 解析 SSE 转写 →
// 提取媒体 URL →（图片）代理下载并转成 data-URI。
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/helper"
	"github.com/yszxh/nano-image-generator/common/image"
	"github.com/yszxh/nano-image-generator/common/logger"
	"github.com/yszxh/nano-image-generator/relay/extract"
	"github.com/yszxh/nano-image-generator/relay/model"
	"github.com/yszxh/nano-image-generator/relay/stream"
	"github.com/yszxh/nano-image-generator/relay/util"
)

// Progress 一次进度上报：人类可读的阶段文案 + 0–100 的百分比
type Progress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
}

type ProgressFunc func(Progress)

// Request 一次生成请求的全部输入，派发后不再修改
type Request struct {
	Kind   model.MediaKind
	Model  string
	ApiKey string
	Parts  []model.MessageContent
}

// Result 生成成功的产物。图片的 MediaPayload 恒为 data-URI，
// 绝不把第三方裸 URL 交给前端展示；视频保留远端 URL，播放走代理。
type Result struct {
	MediaPayload string
	SourceURL    string
	MimeType     string
	Data         []byte // 图片原始字节，供可选的对象存储转存
}

// Driver 字段全部带默认值，零值即可用；测试时替换 Endpoint 和 Client
type Driver struct {
	Endpoint       string
	Client         *http.Client
	Timeout        time.Duration
	EstimatedBytes int
	ErrorKeywords  []string

	// FetchMedia 同源代理抓取，默认 util.FetchMedia
	FetchMedia func(ctx context.Context, url string) (*util.Media, error)
}

func New() *Driver {
	return &Driver{
		Endpoint:       config.ApiBaseURL,
		Client:         util.GetHttpClient(),
		Timeout:        helper.Seconds2Duration(config.StreamTimeout),
		EstimatedBytes: config.StreamEstimatedBytes,
		ErrorKeywords:  config.GetErrorKeywords(),
		FetchMedia:     util.FetchMedia,
	}
}

// Run 执行一次生成。进度回调严格按百分比递增触发；
// 任何非 done 状态都可能落入失败并返回带分类的错误。
func (d *Driver) Run(ctx context.Context, request *Request, onProgress ProgressFunc) (*Result, *model.ErrorWithStatusCode) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	creatingStage := "🎨 AI 正在创作..."
	if request.Kind == model.MediaKindVideo {
		creatingStage = "🎬 AI 正在创作视频..."
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	onProgress(Progress{Stage: "🔗 连接服务器...", Percent: 5})

	transcript, relayErr := d.streamTranscript(ctx, request, creatingStage, onProgress)
	if relayErr != nil {
		return nil, relayErr
	}

	onProgress(Progress{Stage: "🔍 解析响应...", Percent: 75})

	parsed := stream.Parse(transcript, d.ErrorKeywords)
	if parsed.ErrorDetected {
		return nil, wrapError(model.ErrorTypeGeneration, parsed.ErrorText, http.StatusBadGateway)
	}

	mediaURL, ok := extract.MediaURL(parsed.CombinedText(), request.Kind)
	if !ok {
		logger.Debugf(ctx, "no media url in transcript: %s", transcript)
		return nil, wrapError(model.ErrorTypeExtraction, "未能从响应中提取媒体 URL，请重试", http.StatusBadGateway)
	}

	if request.Kind == model.MediaKindVideo {
		// 视频不在此落地，播放时再经同源代理取流
		onProgress(Progress{Stage: "✅ 完成！", Percent: 100})
		return &Result{MediaPayload: mediaURL, SourceURL: mediaURL}, nil
	}

	onProgress(Progress{Stage: "📥 下载图片中...", Percent: 80})

	media, err := d.FetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, wrapError(model.ErrorTypeRelayFetch, fmt.Sprintf("图片下载失败: %s", mediaURL), http.StatusBadGateway)
	}

	onProgress(Progress{Stage: "🖼️ 处理图片...", Percent: 90})

	mimeType := media.ContentType
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/png"
	}
	dataURL := image.ToDataURL(mimeType, media.Data)

	onProgress(Progress{Stage: "✅ 完成！", Percent: 100})

	return &Result{
		MediaPayload: dataURL,
		SourceURL:    mediaURL,
		MimeType:     mimeType,
		Data:         media.Data,
	}, nil
}

// streamTranscript 发起上游调用并增量消费响应体。
// 进度按已收字节相对估算体积的比例走到 70 为止，纯属界面体验，
// 与真实进度无关。
func (d *Driver) streamTranscript(ctx context.Context, request *Request, creatingStage string, onProgress ProgressFunc) (string, *model.ErrorWithStatusCode) {
	message := model.UserMessage(request.Parts...)
	logger.Debugf(ctx, "dispatching %s request: model=%s images=%d prompt=%q",
		request.Kind, request.Model, message.ImageCount(), message.StringContent())
	payload := model.GeneralChatRequest{
		Model:    request.Model,
		Stream:   true,
		Messages: []model.Message{message},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", wrapError(model.ErrorTypeNetwork, "marshal request failed: "+err.Error(), http.StatusInternalServerError)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", wrapError(model.ErrorTypeNetwork, "build request failed: "+err.Error(), http.StatusInternalServerError)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+request.ApiKey)

	resp, err := d.Client.Do(req)
	if err != nil {
		return "", classifyNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		message := fmt.Sprintf("API 请求失败 (%d): %s", resp.StatusCode, string(errorText))
		return "", wrapError(model.ErrorTypeUpstream, message, resp.StatusCode)
	}

	onProgress(Progress{Stage: creatingStage, Percent: 15})

	var transcript strings.Builder
	receivedBytes := 0
	lastPercent := 15.0
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			transcript.Write(buf[:n])
			receivedBytes += n
			percent := 15 + float64(receivedBytes)/float64(d.EstimatedBytes)*55
			if percent > 70 {
				percent = 70
			}
			// 回调只增不减
			if percent > lastPercent {
				lastPercent = percent
				onProgress(Progress{Stage: creatingStage, Percent: percent})
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", classifyNetworkError(readErr)
		}
	}

	return transcript.String(), nil
}

func classifyNetworkError(err error) *model.ErrorWithStatusCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return wrapError(model.ErrorTypeTimeout, "生成超时，请重试", http.StatusGatewayTimeout)
	}
	return wrapError(model.ErrorTypeNetwork, "网络请求失败: "+err.Error(), http.StatusBadGateway)
}

func wrapError(errType string, message string, statusCode int) *model.ErrorWithStatusCode {
	return &model.ErrorWithStatusCode{
		Error: model.Error{
			Message: message,
			Type:    errType,
		},
		StatusCode: statusCode,
	}
}
