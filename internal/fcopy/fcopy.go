// Package fcopy 在两个已打开的 fd 之间搬运一段字节，尽量留在内核里完成。
//
// CopyFile 先把 dst 定位到 off（定位不准属于致命错误），再从 src 的当前位置
// 读 sz 字节写入。返回值原样交给调用方判断，短拷贝是否算错不在这里决定。
package fcopy

import "shm_runtime/internal/log"

func checkOff(off int64) bool {
	if off < 0 {
		log.Fatal("copyFile: negative destination offset", "off", off)
		return false
	}
	return true
}

func checkSeek(newOff, off int64, err error) bool {
	if err != nil || newOff != off {
		log.Fatal("copyFile: lseek did not land on offset", "want", off, "got", newOff, "err", err)
		return false
	}
	return true
}
