package constant

import "github.com/yszxh/nano-image-generator/common/config"

// 视频模型表：生成方式 × 画幅
var videoModels = map[string]map[string]string{
	"text2video": {
		"landscape": "veo_3_1_t2v_landscape",
		"portrait":  "veo_3_1_t2v_portrait",
	},
	"frame2video": {
		"landscape": "veo_3_1_i2v_s_landscape",
		"portrait":  "veo_3_1_i2v_s_portrait",
	},
}

// VideoModel 按生成方式和画幅取模型名，未知画幅回退横版
func VideoModel(mode string, ratio string) string {
	table, ok := videoModels[mode]
	if !ok {
		table = videoModels["text2video"]
	}
	if model, ok := table[ratio]; ok {
		return model
	}
	return table["landscape"]
}

// ImageModel 由档位前缀和画幅后缀拼出模型名，可带分辨率限定。
// 结果对本服务是不透明字符串，是否有效由上游判定。
func ImageModel(tier string, aspect string, resolution string) string {
	if tier == "" {
		return config.DefaultImageModel
	}
	model := tier
	if aspect != "" {
		model += "-" + aspect
	}
	if resolution != "" {
		model += "-" + resolution
	}
	return model
}
