package common

import (
	"fmt"
	"runtime/debug"

	"github.com/yszxh/nano-image-generator/common/logger"
)

func SafeGoroutine(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.SysError(fmt.Sprintf("child goroutine panic occured: error: %v, stack: %s", r, string(debug.Stack())))
			}
		}()
		f()
	}()
}

func SafeSendBool(ch chan bool, value bool) (closed bool) {
	defer func() {
		if recover() != nil {
			closed = true
		}
	}()
	ch <- value
	return false
}
