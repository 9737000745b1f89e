package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	commonConfig "github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/logger"
)

// extensionFromMimeType 根据 MIME 类型获取文件扩展名
func extensionFromMimeType(mimeType string) string {
	mimeType = strings.ToLower(mimeType)
	switch {
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"):
		return ".jpg"
	case strings.Contains(mimeType, "png"):
		return ".png"
	case strings.Contains(mimeType, "gif"):
		return ".gif"
	case strings.Contains(mimeType, "webp"):
		return ".webp"
	default:
		return ".png"
	}
}

// Enabled R2 转存是否可用（开关打开且四项配置齐全）
func Enabled() bool {
	return commonConfig.R2StoreEnabled &&
		commonConfig.R2AccessKey != "" &&
		commonConfig.R2SecretKey != "" &&
		commonConfig.R2BucketName != "" &&
		commonConfig.R2Endpoint != ""
}

// UploadImage 把生成的图片字节转存到 R2/S3，返回公开访问 URL
func UploadImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !Enabled() {
		return "", fmt.Errorf("R2 configuration is incomplete")
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("%s-%d%s", timestamp, time.Now().UnixNano()%1e6, extensionFromMimeType(mimeType))
	objectKey := path.Join("nano-images", filename)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			commonConfig.R2AccessKey, commonConfig.R2SecretKey, "")),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: commonConfig.R2Endpoint}, nil
			}),
		),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create AWS config: %v", err)
	}

	// Path-Style 避免虚拟主机风格的子域名 TLS 问题
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	_, err = s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(commonConfig.R2BucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %v", err)
	}

	var resultUrl string
	if commonConfig.R2PublicBase != "" {
		resultUrl = fmt.Sprintf("%s/%s", strings.TrimSuffix(commonConfig.R2PublicBase, "/"), objectKey)
	} else {
		resultUrl = fmt.Sprintf("%s/%s/%s", commonConfig.R2Endpoint, commonConfig.R2BucketName, objectKey)
	}
	logger.SysLog(fmt.Sprintf("image uploaded to R2: %s (size: %d bytes)", resultUrl, len(data)))

	return resultUrl, nil
}
