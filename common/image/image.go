package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"regexp"
	"strings"
	"sync"

	_ "golang.org/x/image/webp"
)

// Regex to match data URL pattern
var dataURLPattern = regexp.MustCompile(`data:([^;]+);base64,(.*)`)

var base64Prefix = regexp.MustCompile(`data:image/([^;]+);base64,`)

var readerPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Reader{}
	},
}

// IsDataURL 判断是否为 data-URI 形式的内联图片
func IsDataURL(s string) bool {
	return dataURLPattern.MatchString(s)
}

// ParseDataURL 拆出 mime 类型与原始字节
func ParseDataURL(s string) (mimeType string, data []byte, err error) {
	matches := dataURLPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return "", nil, fmt.Errorf("not a data URL")
	}
	decoded, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		return "", nil, err
	}
	return matches[1], decoded, nil
}

// ToDataURL 把二进制媒体编码为 data-URI
func ToDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// MimeTypeFromFilename 根据扩展名返回 MIME 类型
func MimeTypeFromFilename(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func GetImageSizeFromBase64(encoded string) (width int, height int, err error) {
	decoded, err := base64.StdEncoding.DecodeString(base64Prefix.ReplaceAllString(encoded, ""))
	if err != nil {
		return 0, 0, err
	}

	reader := readerPool.Get().(*bytes.Reader)
	defer readerPool.Put(reader)
	reader.Reset(decoded)

	img, _, err := image.DecodeConfig(reader)
	if err != nil {
		return 0, 0, err
	}

	return img.Width, img.Height, nil
}

// ValidateDataURL 校验上传的 data-URI：必须可解码、是图片且不超过大小上限
func ValidateDataURL(s string, maxBytes int) error {
	mimeType, data, err := ParseDataURL(s)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("unsupported media type: %s", mimeType)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return fmt.Errorf("image too large: %d bytes (limit %d)", len(data), maxBytes)
	}
	reader := readerPool.Get().(*bytes.Reader)
	defer readerPool.Put(reader)
	reader.Reset(data)
	if _, _, err := image.DecodeConfig(reader); err != nil {
		return fmt.Errorf("undecodable image: %w", err)
	}
	return nil
}
