//go:build !linux

package tid

// Current 没有 gettid 的平台上，线程已锁定时 goroutine 与线程一一对应，用 goroutine id 代替。
func Current() int64 {
	return goid()
}
