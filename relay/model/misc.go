package model

type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    any    `json:"code"`
}

type ErrorWithStatusCode struct {
	Error
	StatusCode int `json:"status_code"`
}

// 失败分类，见各 Err* 构造处
const (
	ErrorTypeNetwork    = "network_error"
	ErrorTypeTimeout    = "timeout_error"
	ErrorTypeUpstream   = "upstream_error"
	ErrorTypeGeneration = "generation_error"
	ErrorTypeExtraction = "extraction_error"
	ErrorTypeRelayFetch = "relay_fetch_error"
)
