package util

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/yszxh/nano-image-generator/common/logger"
)

var tokenEncoderOnce sync.Once
var defaultTokenEncoder *tiktoken.Tiktoken

func getTokenEncoder() *tiktoken.Tiktoken {
	tokenEncoderOnce.Do(func() {
		encoder, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.SysError("failed to get cl100k_base token encoder: " + err.Error())
			return
		}
		defaultTokenEncoder = encoder
	})
	return defaultTokenEncoder
}

// CountTokenText 统计提示词的 token 数，仅用于历史记录展示。
// 编码器不可用时退化为按字符数估算。
func CountTokenText(text string) int {
	encoder := getTokenEncoder()
	if encoder == nil {
		return int(float64(len(text)) * 0.38)
	}
	return len(encoder.Encode(text, nil, nil))
}
