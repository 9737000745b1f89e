package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/yszxh/nano-image-generator/common"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/helper"
	"github.com/yszxh/nano-image-generator/common/image"
	"github.com/yszxh/nano-image-generator/relay/constant"
	"github.com/yszxh/nano-image-generator/relay/driver"
	relaymodel "github.com/yszxh/nano-image-generator/relay/model"
)

// GenerateRequest 文生图请求
type GenerateRequest struct {
	Prompt     string `json:"prompt" binding:"required"`
	ApiKey     string `json:"apiKey"`
	Model      string `json:"model"`
	Tier       string `json:"tier"`
	Aspect     string `json:"aspect"`
	Resolution string `json:"resolution"`
}

// EditRequest 图生图（编辑）请求，主图必传，参考图可选
type EditRequest struct {
	Prompt                string   `json:"prompt" binding:"required"`
	ApiKey                string   `json:"apiKey"`
	Model                 string   `json:"model"`
	MainImageBase64       string   `json:"mainImageBase64" binding:"required"`
	ReferenceImagesBase64 []string `json:"referenceImagesBase64"`
}

// Generate 文生图
func (s *Server) Generate(c *gin.Context) {
	var request GenerateRequest
	if err := common.UnmarshalBodyReusable(c, &request); err != nil {
		badRequest(c, "请输入提示词")
		return
	}

	apiKey, ok := resolveApiKey(request.ApiKey)
	if !ok {
		badRequest(c, "请配置 API Key")
		return
	}

	modelName := request.Model
	if modelName == "" {
		modelName = constant.ImageModel(request.Tier, request.Aspect, request.Resolution)
	}

	s.runGeneration(c, common.RequestTypeGenerate, &driver.Request{
		Kind:   relaymodel.MediaKindImage,
		Model:  modelName,
		ApiKey: apiKey,
		Parts:  []relaymodel.MessageContent{relaymodel.TextPart(request.Prompt)},
	}, request.Prompt)
}

// Edit 图生图：文本 + 主图 + 至多 MaxReferenceImages 张参考图
func (s *Server) Edit(c *gin.Context) {
	var request EditRequest
	if err := common.UnmarshalBodyReusable(c, &request); err != nil {
		badRequest(c, "请输入编辑提示词并上传要编辑的图片")
		return
	}

	apiKey, ok := resolveApiKey(request.ApiKey)
	if !ok {
		badRequest(c, "请配置 API Key")
		return
	}

	if len(request.ReferenceImagesBase64) > config.MaxReferenceImages {
		badRequest(c, tooManyReferences())
		return
	}

	if err := image.ValidateDataURL(request.MainImageBase64, maxUploadBytes()); err != nil {
		badRequest(c, "主图无效: "+err.Error())
		return
	}

	parts := []relaymodel.MessageContent{
		relaymodel.TextPart(request.Prompt),
		relaymodel.ImagePart(request.MainImageBase64),
	}
	for _, ref := range request.ReferenceImagesBase64 {
		if err := image.ValidateDataURL(ref, maxUploadBytes()); err != nil {
			badRequest(c, "参考图无效: "+err.Error())
			return
		}
		parts = append(parts, relaymodel.ImagePart(ref))
	}

	modelName := helper.AssignOrDefault(request.Model, config.DefaultImageModel)

	s.runGeneration(c, common.RequestTypeEdit, &driver.Request{
		Kind:   relaymodel.MediaKindImage,
		Model:  modelName,
		ApiKey: apiKey,
		Parts:  parts,
	}, request.Prompt)
}
