package model

const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// MediaKind 目标媒体类型
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)
