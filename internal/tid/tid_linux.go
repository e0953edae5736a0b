//go:build linux

package tid

import "golang.org/x/sys/unix"

// Current 当前线程的内核 tid。
func Current() int64 {
	return int64(unix.Gettid())
}
