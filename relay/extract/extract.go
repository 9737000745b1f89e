// Package extract 从模型的自由文本输出里猜出生成的媒体 URL。
//
// 上游不提供结构化的结果字段，URL 混在散文里，只能靠正则加启发式
// 打分。这是已接受的设计局限：上游改为结构化返回之前没有更稳的契约。
package extract

import (
	"regexp"
	"strings"

	"github.com/yszxh/nano-image-generator/relay/model"
)

var imageURLPattern = regexp.MustCompile(`https?://[^\s"\\)\]>]+`)
var videoURLPattern = regexp.MustCompile(`https?://[^\s"\\)\]>']+`)

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}
var videoExtensions = []string{".mp4", ".webm"}

var imageHints = []string{"image", "cdn", "storage"}
var videoHints = []string{"video", "videofx"}

// MediaURL 返回文本中最可能是目标媒体的 URL。
// 优先取首个强匹配（扩展名或关键词命中），否则兜底返回首个候选；
// 没有候选时返回 ("", false)，由调用方决定如何失败。
func MediaURL(text string, kind model.MediaKind) (string, bool) {
	pattern := imageURLPattern
	extensions := imageExtensions
	hints := imageHints
	if kind == model.MediaKindVideo {
		pattern = videoURLPattern
		extensions = videoExtensions
		hints = videoHints
	}

	candidates := pattern.FindAllString(text, -1)
	if len(candidates) == 0 {
		return "", false
	}

	for _, candidate := range candidates {
		cleanURL := stripTrailingNoise(candidate)
		if isStrongMatch(cleanURL, extensions, hints) {
			return cleanURL, true
		}
	}
	return stripTrailingNoise(candidates[0]), true
}

// stripTrailingNoise 去掉候选末尾粘连的引号、反斜杠等噪声
func stripTrailingNoise(url string) string {
	return strings.TrimRight(url, `"'\>`)
}

func isStrongMatch(url string, extensions []string, hints []string) bool {
	lower := strings.ToLower(url)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	for _, hint := range hints {
		if strings.Contains(url, hint) {
			return true
		}
	}
	return false
}
