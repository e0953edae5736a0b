//go:build windows

package msg

import "syscall"

// SigDump windows 上没有 SIGUSR2，只作为记录里的编号使用（仅 TriggerDump 可达）。
const SigDump = syscall.Signal(0x1f)
