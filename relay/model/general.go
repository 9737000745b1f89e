package model

// GeneralChatRequest 发往上游生成 API 的请求体，stream 恒为 true
type GeneralChatRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
}

// StreamDelta 一条 SSE 行内第一 choice 的增量
type StreamDelta struct {
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

// ChatCompletionsStreamResponse 上游 SSE 数据行的结构化形式。
// Error 既可能是字符串也可能是对象，解码后统一转为文本。
type ChatCompletionsStreamResponse struct {
	Id      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Error   any            `json:"error,omitempty"`
}
