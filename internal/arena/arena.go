// Package arena 是一个 mmap 后端堆：按 size class 维护 freelist，从区域尾部向下分配。
package arena

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"unsafe"

	"shm_runtime/internal/errs"
	"shm_runtime/internal/fcopy"
	"shm_runtime/internal/log"
	"shm_runtime/internal/mmap"
)

// Arena 单块映射区：尾部 bump 分配 + 按档位的 freelist。
type Arena struct {
	mu    sync.Locker
	own   sync.Mutex
	path  string
	f     *os.File
	data  []byte
	top   uint64
	free  map[uint32][]uint64
	truth map[uint64]uint32
	live  map[uint64]uint32
}

// Stats 占用统计。
type Stats struct {
	Size   int
	InUse  uint64
	Free   uint64
	Blocks int
}

// Open 打开或创建 arena。path 为空时使用匿名映射。
func Open(path string, size int64) (*Arena, error) {
	if size <= 0 {
		return nil, errs.ErrBadArgument
	}
	a := &Arena{
		path:  path,
		free:  make(map[uint32][]uint64),
		truth: make(map[uint64]uint32),
		live:  make(map[uint64]uint32),
	}
	a.mu = &a.own
	if path == "" {
		data, err := mmap.MapAnon(int(size))
		if err != nil {
			return nil, err
		}
		a.data = data
	} else {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return nil, err
		}
		data, err := mmap.Map(f.Fd(), int(size))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("arena map %s: %w", path, err)
		}
		a.f = f
		a.data = data
	}
	a.top = uint64(len(a.data))
	return a, nil
}

// SetLocker 绑定全局锁。须在并发使用前调用。
func (a *Arena) SetLocker(l sync.Locker) {
	if l == nil {
		l = &a.own
	}
	a.mu = l
}

// Malloc 分配 n 字节，不命中 freelist 则从尾部切。
func (a *Arena) Malloc(n uint32) ([]byte, bool) {
	c := SizeClass(n)
	if c == 0 {
		return nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return nil, false
	}
	off, ok := a.pop(c)
	if !ok {
		if a.top < uint64(c) {
			return nil, false
		}
		a.top -= uint64(c)
		off = a.top
	}
	a.live[off] = c
	b := a.data[off : off+uint64(n) : off+uint64(c)]
	clear(b)
	return b, true
}

// Alloc 同 Malloc，但区分失败原因：n 为 0 返回 errs.ErrBadArgument，
// 已关闭返回 errs.ErrClosed，空间不足返回 errs.ErrNoSpace。
func (a *Arena) Alloc(n uint32) ([]byte, error) {
	if SizeClass(n) == 0 {
		return nil, errs.ErrBadArgument
	}
	if b, ok := a.Malloc(n); ok {
		return b, nil
	}
	a.mu.Lock()
	closed := a.data == nil
	a.mu.Unlock()
	if closed {
		return nil, errs.ErrClosed
	}
	return nil, fmt.Errorf("arena alloc %d bytes: %w", n, errs.ErrNoSpace)
}

func (a *Arena) pop(c uint32) (uint64, bool) {
	stack := a.free[c]
	for len(stack) > 0 {
		off := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cls, ok := a.truth[off]; ok && cls == c {
			delete(a.truth, off)
			a.free[c] = stack
			return off, true
		}
	}
	a.free[c] = stack
	return 0, false
}

// Free 归还 Malloc 得到的块；不属于本 arena 或重复释放的块忽略。
func (a *Arena) Free(b []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	off, ok := a.offsetOf(b)
	if !ok {
		log.Debug("arena: free of foreign block ignored")
		return
	}
	c, ok := a.live[off]
	if !ok {
		return
	}
	delete(a.live, off)
	a.truth[off] = c
	a.free[c] = append(a.free[c], off)
}

func (a *Arena) offsetOf(b []byte) (uint64, bool) {
	if a.data == nil || cap(b) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.data)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	if p < base || p >= base+uintptr(len(a.data)) {
		return 0, false
	}
	return uint64(p - base), true
}

// Stats 返回当前占用。
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats()
}

func (a *Arena) stats() Stats {
	s := Stats{Size: len(a.data), Blocks: len(a.live)}
	for _, c := range a.live {
		s.InUse += uint64(c)
	}
	for _, c := range a.truth {
		s.Free += uint64(c)
	}
	return s
}

// DumpStrings 把每个档位的占用打到日志里。
func (a *Arena) DumpStrings() {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats()
	l := log.L().WithValues("arena", a.path)
	l.Info("arena dump", "size", s.Size, "top", a.top, "inuse", s.InUse, "free", s.Free, "blocks", s.Blocks)

	live := make(map[uint32]int)
	for _, c := range a.live {
		live[c]++
	}
	freed := make(map[uint32]int)
	for _, c := range a.truth {
		freed[c]++
	}
	classes := make([]uint32, 0, len(live)+len(freed))
	for c := range live {
		classes = append(classes, c)
	}
	for c := range freed {
		if _, ok := live[c]; !ok {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	for _, c := range classes {
		l.Info("size class", "class", c, "live", live[c], "free", freed[c])
	}
}

// Snapshot 把文件映射区整体写入 dst 的 off 处，返回拷贝字节数。
func (a *Arena) Snapshot(dst *os.File, off int64) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		return 0, errs.ErrClosed
	}
	if a.f == nil {
		return 0, errs.ErrNotSupported
	}
	if err := mmap.Sync(a.data); err != nil {
		return 0, err
	}
	if _, err := a.f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return fcopy.CopyFile(int(dst.Fd()), int(a.f.Fd()), off, len(a.data))
}

// Close 刷盘、解除映射、关闭文件。
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data != nil {
		if a.f != nil {
			if err := mmap.Sync(a.data); err != nil {
				return err
			}
		}
		if err := mmap.Unmap(a.data); err != nil {
			return err
		}
		a.data = nil
	}
	if a.f != nil {
		if err := a.f.Close(); err != nil {
			return err
		}
		a.f = nil
	}
	a.free = nil
	a.truth = nil
	a.live = nil
	return nil
}
