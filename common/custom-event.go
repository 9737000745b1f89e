package common

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CustomEvent 按 SSE 规范写出一条事件，用于向前端透传进度行
type CustomEvent struct {
	Event string
	Id    string
	Retry uint
	Data  interface{}
}

var contentType = []string{"text/event-stream"}
var noCache = []string{"no-cache"}

var dataReplacer = strings.NewReplacer(
	"\n", "\ndata:",
	"\r", "\\r")

func encode(writer io.Writer, event CustomEvent) error {
	return writeData(writer, event.Data)
}

func writeData(w io.Writer, data interface{}) error {
	_, err := dataReplacer.WriteString(w, fmt.Sprint(data))
	if err != nil {
		return err
	}
	if s, ok := data.(string); ok && strings.HasPrefix(s, "data") {
		_, err = w.Write([]byte("\n\n"))
	}
	return err
}

func (r CustomEvent) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	return encode(w, r)
}

func (r CustomEvent) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	header["Content-Type"] = contentType
	if _, exists := header["Cache-Control"]; !exists {
		header["Cache-Control"] = noCache
	}
}
