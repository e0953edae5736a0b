//go:build linux

package fcopy

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"

	"shm_runtime/internal/errs"
)

// CopyFile 优先 copy_file_range；内核或文件系统不支持时退回 sendfile
// （2.6.33 起 sendfile 可写普通文件）。
func CopyFile(dstFd, srcFd int, off int64, sz int) (int, error) {
	if !checkOff(off) {
		return -1, errs.ErrBadArgument
	}
	newOff, err := unix.Seek(dstFd, off, io.SeekStart)
	if !checkSeek(newOff, off, err) {
		return -1, errs.ErrBadArgument
	}
	n, err := unix.CopyFileRange(srcFd, nil, dstFd, nil, sz, 0)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EOPNOTSUPP) {
		return unix.Sendfile(dstFd, srcFd, nil, sz)
	}
	return n, err
}
