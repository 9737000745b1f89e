package constant

import (
	"testing"

	"github.com/yszxh/nano-image-generator/common/config"
)

func TestVideoModel(t *testing.T) {
	tests := []struct {
		mode  string
		ratio string
		want  string
	}{
		{"text2video", "landscape", "veo_3_1_t2v_landscape"},
		{"text2video", "portrait", "veo_3_1_t2v_portrait"},
		{"frame2video", "landscape", "veo_3_1_i2v_s_landscape"},
		{"frame2video", "portrait", "veo_3_1_i2v_s_portrait"},
		// 未知画幅回退横版
		{"text2video", "square", "veo_3_1_t2v_landscape"},
		{"frame2video", "", "veo_3_1_i2v_s_landscape"},
		// 未知生成方式回退 text2video
		{"dance2video", "portrait", "veo_3_1_t2v_portrait"},
	}

	for _, tt := range tests {
		if got := VideoModel(tt.mode, tt.ratio); got != tt.want {
			t.Errorf("VideoModel(%q, %q) = %q, want %q", tt.mode, tt.ratio, got, tt.want)
		}
	}
}

func TestImageModel(t *testing.T) {
	tests := []struct {
		name       string
		tier       string
		aspect     string
		resolution string
		want       string
	}{
		{"空档位回默认模型", "", "portrait", "", config.DefaultImageModel},
		{"档位加画幅", "gemini-3.0-pro-image", "landscape", "", "gemini-3.0-pro-image-landscape"},
		{"带分辨率限定", "gemini-3.0-pro-image", "portrait", "2k", "gemini-3.0-pro-image-portrait-2k"},
		{"只有档位", "gemini-3.0-flash-image", "", "", "gemini-3.0-flash-image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageModel(tt.tier, tt.aspect, tt.resolution); got != tt.want {
				t.Errorf("ImageModel() = %q, want %q", got, tt.want)
			}
		})
	}
}
