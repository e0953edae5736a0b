//go:build unix

package msg

import "syscall"

// SigDump 触发诊断 dump 的专用信号。
const SigDump = syscall.SIGUSR2
