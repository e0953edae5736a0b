//go:build windows

package mmap

import "shm_runtime/internal/errs"

func Map(fd uintptr, size int) ([]byte, error) {
	return nil, errs.ErrNotSupported
}

// MapAnon windows 上退化为普通切片。
func MapAnon(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func Sync(data []byte) error {
	return errs.ErrNotSupported
}

func Unmap(data []byte) error {
	return nil
}
