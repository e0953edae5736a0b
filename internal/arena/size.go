package arena

import "shm_runtime/msg"

// SizeClass 把 n 向上取整到 Align 的整数倍。
func SizeClass(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return (n + msg.Align - 1) / msg.Align * msg.Align
}
