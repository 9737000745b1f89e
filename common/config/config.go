package config

import (
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yszxh/nano-image-generator/common/env"
)

var SystemName = "NANO 图像生成器"
var ServiceName = env.String("SERVICE_NAME", "nano-image-generator")
var InstanceId = uuid.New().String()[:8]

var SessionSecret = uuid.New().String()

// 上游生成 API（chat completions 风格，stream=true）
var ApiBaseURL = env.String("API_BASE_URL", "https://api.yyds168.net/v1/chat/completions")
var DefaultImageModel = env.String("DEFAULT_IMAGE_MODEL", "gemini-3.0-pro-image-portrait")

// 服务器侧 API Key，可选；前端传 key 时以前端为准
var ServerApiKey = os.Getenv("GEMINI_API_KEY")

var DebugEnabled = strings.ToLower(os.Getenv("DEBUG")) == "true"

// RelayTimeout 普通代理请求超时（秒），0 表示不限
var RelayTimeout = env.Int("RELAY_TIMEOUT", 0)

// StreamTimeout 单次生成请求总时长上限（秒）
var StreamTimeout = env.Int("STREAM_TIMEOUT", 300)

// StreamEstimatedBytes 流式进度估算的响应体大小，仅用于进度条
var StreamEstimatedBytes = env.Int("STREAM_ESTIMATED_BYTES", 5000)

var HistoryLimit = env.Int("HISTORY_LIMIT", 30)
var MaxUploadMB = env.Int("MAX_UPLOAD_MB", 20)
var MaxReferenceImages = env.Int("MAX_REFERENCE_IMAGES", 5)
var MaxConcurrentTasks = env.Int("MAX_CONCURRENT_TASKS", 3)

var RedisConnString = os.Getenv("REDIS_CONN_STRING")

// ProxyCacheSeconds 代理媒体字节的缓存时长
var ProxyCacheSeconds = env.Int("PROXY_CACHE_SECONDS", 86400)

// 推理通道内的失败关键词（一行一个），命中即判定本次生成失败。
// 上游措辞变化时改环境变量即可，不用改代码。
var errorKeywords = []string{"❌", "生成失败", "违规"}
var errorKeywordsMutex sync.RWMutex

// R2 / S3 对象存储：配置齐全时生成的图片会转存并以公开 URL 入库
var R2StoreEnabled = strings.ToLower(os.Getenv("R2_STORE_ENABLED")) == "true"
var R2BucketName = os.Getenv("R2_BUCKET_NAME")
var R2AccessKey = os.Getenv("R2_ACCESS_KEY")
var R2SecretKey = os.Getenv("R2_SECRET_KEY")
var R2Endpoint = os.Getenv("R2_ENDPOINT")
var R2PublicBase = os.Getenv("R2_PUBLIC_BASE")

func init() {
	if keywords := os.Getenv("ERROR_KEYWORDS"); keywords != "" {
		var list []string
		for _, line := range strings.Split(keywords, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				list = append(list, line)
			}
		}
		if len(list) > 0 {
			errorKeywords = list
		}
	}
}

// GetErrorKeywords 返回当前生效的失败关键词列表
func GetErrorKeywords() []string {
	errorKeywordsMutex.RLock()
	defer errorKeywordsMutex.RUnlock()
	keywords := make([]string, len(errorKeywords))
	copy(keywords, errorKeywords)
	return keywords
}

// SetErrorKeywords 运行期更新失败关键词（测试与管理接口使用）
func SetErrorKeywords(keywords []string) {
	errorKeywordsMutex.Lock()
	defer errorKeywordsMutex.Unlock()
	errorKeywords = keywords
}
