package common

import (
	"context"
	"math"

	"github.com/bytedance/gopkg/util/gopool"
)

var taskGoPool gopool.Pool

func init() {
	taskGoPool = gopool.NewPool("gopool.TaskPool", math.MaxInt32, gopool.NewConfig())
	taskGoPool.SetPanicHandler(func(ctx context.Context, i interface{}) {
		if stopChan, ok := ctx.Value("stop_chan").(chan bool); ok {
			SafeSendBool(stopChan, true)
		}
	})
}

func TaskCtxGo(ctx context.Context, f func()) {
	taskGoPool.CtxGo(ctx, f)
}
