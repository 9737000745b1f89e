package model

// Message 上游 chat-completions 消息。Content 恒为显式的多段结构，
// 不使用 any 承载异构 JSON。
type Message struct {
	Role    string           `json:"role"`
	Content []MessageContent `json:"content"`
}

// MessageContent 消息分段：文本或 data-URI 形式的图片引用
type MessageContent struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	Url string `json:"url,omitempty"`
}

func TextPart(text string) MessageContent {
	return MessageContent{Type: ContentTypeText, Text: text}
}

func ImagePart(dataURL string) MessageContent {
	return MessageContent{Type: ContentTypeImageURL, ImageURL: &ImageURL{Url: dataURL}}
}

// UserMessage 以 user 角色包一组分段
func UserMessage(parts ...MessageContent) Message {
	return Message{Role: "user", Content: parts}
}

// StringContent 拼接消息内所有文本段
func (m Message) StringContent() string {
	var contentStr string
	for _, part := range m.Content {
		if part.Type == ContentTypeText {
			contentStr += part.Text
		}
	}
	return contentStr
}

// ImageCount 统计消息内的图片段数量
func (m Message) ImageCount() int {
	count := 0
	for _, part := range m.Content {
		if part.Type == ContentTypeImageURL {
			count++
		}
	}
	return count
}
