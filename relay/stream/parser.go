// Package stream 把上游 SSE 转写还原成结构化文本。
//
// 上游的 data 行是 chat-completions 风格的 JSON 增量，正文走 content，
// 推理过程走 reasoning_content。部分实现把失败写进 error 字段，也有的
// 只在推理文本里输出"生成失败"之类的字样，两种都要能识别。
package stream

import (
	"encoding/json"
	"strings"

	"github.com/yszxh/nano-image-generator/relay/model"
)

const doneSentinel = "[DONE]"

// Result 对一份完整转写做一次解析得到的结果
type Result struct {
	Content       string
	Reasoning     string
	ErrorDetected bool
	ErrorText     string
}

// CombinedText content 与 reasoning 以单个空格拼接，交给 URL 提取
func (r Result) CombinedText() string {
	return r.Content + " " + r.Reasoning
}

// Parse 解析完整（或截至目前收到的）SSE 转写。
// 残缺行、非 JSON 行是流中途的常态，直接跳过，不算错误。
func Parse(transcript string, errorKeywords []string) Result {
	var result Result
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == doneSentinel {
			// 终止哨兵之后的行一律忽略
			break
		}
		var response model.ChatCompletionsStreamResponse
		if err := json.Unmarshal([]byte(payload), &response); err != nil {
			continue
		}
		if response.Error != nil {
			// 显式 error 记录是终结性的，首个命中即停
			result.ErrorDetected = true
			result.ErrorText = stringifyError(response.Error)
			break
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta
		if delta.Content != "" {
			result.Content += delta.Content
		}
		if delta.ReasoningContent != "" {
			result.Reasoning += delta.ReasoningContent
			// 推理文本里的失败关键词只置位不中断，后续增量照常累积
			if !result.ErrorDetected {
				for _, keyword := range errorKeywords {
					if strings.Contains(delta.ReasoningContent, keyword) {
						result.ErrorDetected = true
						result.ErrorText = delta.ReasoningContent
						break
					}
				}
			}
		}
	}
	return result
}

func stringifyError(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "unknown upstream error"
	}
	return string(data)
}
