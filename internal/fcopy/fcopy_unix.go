//go:build unix && !linux

package fcopy

import (
	"io"

	"golang.org/x/sys/unix"

	"shm_runtime/internal/errs"
)

const chunk = 64 << 10

// CopyFile 没有 fd 到 fd 区间拷贝的平台上走用户态分块拷贝。
func CopyFile(dstFd, srcFd int, off int64, sz int) (int, error) {
	if !checkOff(off) {
		return -1, errs.ErrBadArgument
	}
	newOff, err := unix.Seek(dstFd, off, io.SeekStart)
	if !checkSeek(newOff, off, err) {
		return -1, errs.ErrBadArgument
	}
	buf := make([]byte, min(sz, chunk))
	total := 0
	for total < sz {
		want := min(sz-total, len(buf))
		r, err := unix.Read(srcFd, buf[:want])
		if err != nil {
			return total, err
		}
		if r == 0 {
			break
		}
		w, err := unix.Write(dstFd, buf[:r])
		total += w
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
