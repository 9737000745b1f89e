package logger

var LogDir string

const RequestIdKey = "X-Request-Id"
