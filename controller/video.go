package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/image"
	"github.com/yszxh/nano-image-generator/relay/constant"
	"github.com/yszxh/nano-image-generator/relay/driver"
	relaymodel "github.com/yszxh/nano-image-generator/relay/model"
)

// VideoRequest 文生视频请求
type VideoRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	ApiKey string `json:"apiKey"`
	Ratio  string `json:"ratio"`
}

// FrameVideoRequest 首尾帧生视频请求，尾帧可选
type FrameVideoRequest struct {
	Prompt           string `json:"prompt" binding:"required"`
	ApiKey           string `json:"apiKey"`
	Ratio            string `json:"ratio"`
	StartFrameBase64 string `json:"startFrameBase64" binding:"required"`
	EndFrameBase64   string `json:"endFrameBase64"`
}

// GenerateVideo 文生视频
func (s *Server) GenerateVideo(c *gin.Context) {
	var request VideoRequest
	if err := common.UnmarshalBodyReusable(c, &request); err != nil {
		badRequest(c, "请输入提示词")
		return
	}

	apiKey, ok := resolveApiKey(request.ApiKey)
	if !ok {
		badRequest(c, "请配置 API Key")
		return
	}

	s.runGeneration(c, common.RequestTypeTextToVideo, &driver.Request{
		Kind:   relaymodel.MediaKindVideo,
		Model:  constant.VideoModel("text2video", request.Ratio),
		ApiKey: apiKey,
		Parts:  []relaymodel.MessageContent{relaymodel.TextPart(request.Prompt)},
	}, request.Prompt)
}

// GenerateVideoFromFrames 首尾帧生视频
func (s *Server) GenerateVideoFromFrames(c *gin.Context) {
	var request FrameVideoRequest
	if err := common.UnmarshalBodyReusable(c, &request); err != nil {
		badRequest(c, "请输入提示词并上传起始帧")
		return
	}

	apiKey, ok := resolveApiKey(request.ApiKey)
	if !ok {
		badRequest(c, "请配置 API Key")
		return
	}

	if err := image.ValidateDataURL(request.StartFrameBase64, maxUploadBytes()); err != nil {
		badRequest(c, "起始帧无效: "+err.Error())
		return
	}

	parts := []relaymodel.MessageContent{
		relaymodel.TextPart(request.Prompt),
		relaymodel.ImagePart(request.StartFrameBase64),
	}
	if request.EndFrameBase64 != "" {
		if err := image.ValidateDataURL(request.EndFrameBase64, maxUploadBytes()); err != nil {
			badRequest(c, "结束帧无效: "+err.Error())
			return
		}
		parts = append(parts, relaymodel.ImagePart(request.EndFrameBase64))
	}

	s.runGeneration(c, common.RequestTypeFrameVideo, &driver.Request{
		Kind:   relaymodel.MediaKindVideo,
		Model:  constant.VideoModel("frame2video", request.Ratio),
		ApiKey: apiKey,
		Parts:  parts,
	}, request.Prompt)
}
