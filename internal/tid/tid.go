// Package tid 给出当前 OS 线程的标识。调用方须先 runtime.LockOSThread，
// 否则 goroutine 可能被迁移到别的线程。
package tid

import "runtime"

// goid 解析 runtime.Stack 首行 "goroutine 123 [running]:"。
func goid() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
