package util

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/helper"
	"github.com/yszxh/nano-image-generator/common/logger"
)

// 超过 8MB 的媒体不进缓存，避免大视频挤爆 Redis
const maxCacheableBytes = 8 * 1024 * 1024

// Media 一次代理抓取的结果
type Media struct {
	ContentType string
	Data        []byte
}

// FetchMedia 服务端代为抓取第三方媒体 URL，绕开浏览器跨域限制。
// Redis 可用时按 URL 缓存字节，命中则不再回源。
func FetchMedia(ctx context.Context, url string) (*Media, error) {
	cacheKey := mediaCacheKey(url)
	if common.RedisEnabled {
		if media, err := mediaFromCache(cacheKey); err == nil {
			return media, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := GetHttpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("media fetch failed (%d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	media := &Media{ContentType: contentType, Data: data}

	if common.RedisEnabled && len(data) < maxCacheableBytes {
		expiration := helper.Seconds2Duration(config.ProxyCacheSeconds)
		if err := common.RedisSet(cacheKey+":ct", contentType, expiration); err != nil {
			logger.SysError("failed to cache media content type: " + err.Error())
		} else if err := common.RedisSetBytes(cacheKey+":data", data, expiration); err != nil {
			logger.SysError("failed to cache media bytes: " + err.Error())
		}
	}

	return media, nil
}

// EvictMedia 删除某个 URL 的缓存字节，历史记录删除时调用
func EvictMedia(url string) {
	if !common.RedisEnabled {
		return
	}
	cacheKey := mediaCacheKey(url)
	if err := common.RedisDel(cacheKey + ":ct"); err != nil {
		logger.SysError("failed to evict media content type: " + err.Error())
	}
	if err := common.RedisDel(cacheKey + ":data"); err != nil {
		logger.SysError("failed to evict media bytes: " + err.Error())
	}
}

func mediaFromCache(cacheKey string) (*Media, error) {
	contentType, err := common.RedisGet(cacheKey + ":ct")
	if err != nil {
		return nil, err
	}
	data, err := common.RedisGetBytes(cacheKey + ":data")
	if err != nil {
		return nil, err
	}
	return &Media{ContentType: contentType, Data: data}, nil
}

func mediaCacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "nano:media:" + hex.EncodeToString(sum[:])
}
