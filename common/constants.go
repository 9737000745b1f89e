package common

import "time"

var Version = "v1.0.0"
var StartTime = time.Now().Unix()

const (
	RequestTypeGenerate    = "generate"
	RequestTypeEdit        = "edit"
	RequestTypeTextToVideo = "text2video"
	RequestTypeFrameVideo  = "frame2video"
)
