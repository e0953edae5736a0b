//go:build windows

package fcopy

import (
	"io"

	"golang.org/x/sys/windows"

	"shm_runtime/internal/errs"
)

const chunk = 64 << 10

// CopyFile windows 没有句柄间的区间拷贝，dstFd/srcFd 视为文件句柄，走用户态分块拷贝。
func CopyFile(dstFd, srcFd int, off int64, sz int) (int, error) {
	if !checkOff(off) {
		return -1, errs.ErrBadArgument
	}
	dst, src := windows.Handle(dstFd), windows.Handle(srcFd)
	newOff, err := windows.Seek(dst, off, io.SeekStart)
	if !checkSeek(newOff, off, err) {
		return -1, errs.ErrBadArgument
	}
	buf := make([]byte, min(sz, chunk))
	total := 0
	for total < sz {
		want := min(sz-total, len(buf))
		r, err := windows.Read(src, buf[:want])
		if err != nil {
			return total, err
		}
		if r == 0 {
			break
		}
		w, err := windows.Write(dst, buf[:r])
		total += w
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
