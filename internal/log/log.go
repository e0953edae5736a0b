// Package log 持有进程级 logger。默认 stdr 写 stderr，嵌入方可用 SetLogger 接管。
package log

import (
	stdlog "log"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"shm_runtime/msg"
)

var (
	mu     sync.RWMutex
	logger = stdr.New(stdlog.New(os.Stderr, "shmrt: ", stdlog.LstdFlags|stdlog.Lmicroseconds))
)

// Exit 致命路径最后调用的退出函数，测试可替换。
var Exit = func() { os.Exit(msg.ExitAbort) }

// SetLogger 替换进程 logger。
func SetLogger(l logr.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// SetVerbosity 设置 stdr 的全局 V 级别，返回旧值。
func SetVerbosity(v int) int {
	return stdr.SetVerbosity(v)
}

// L 返回当前 logger。
func L() logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug 诊断信息，V(1)。
func Debug(m string, kv ...any) {
	L().V(1).Info(m, kv...)
}

// Fatal 记录后终止进程。
func Fatal(m string, kv ...any) {
	L().Error(nil, m, kv...)
	Exit()
}
