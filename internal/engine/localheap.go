package engine

import (
	"sync/atomic"

	"shm_runtime/internal/fixed"
)

// localState 放在后端堆分配的存储里，不能含指针。计数只由所属线程写，dump 线程原子读。
type localState struct {
	TID     int64
	Mallocs uint64
	Frees   uint64
	Bytes   uint64
}

// LocalStats 线程前端的计数。
type LocalStats struct {
	TID     int64
	Mallocs uint64
	Frees   uint64
	Bytes   uint64
}

// LocalHeap 每线程分配前端，只属于所在线程，不加锁。
// ReleaseLocalHeap 之后句柄失效：Malloc 返回 false，Free 直接还给后端堆，Stats 只剩 TID。
type LocalHeap struct {
	tid   int64
	heap  Heap
	buf   []byte
	state *localState
}

func newLocalHeap(id int64, heap Heap, buf []byte) (*LocalHeap, error) {
	st, err := fixed.Place[localState](buf)
	if err != nil {
		return nil, err
	}
	st.TID = id
	return &LocalHeap{tid: id, heap: heap, buf: buf, state: st}, nil
}

// TID 所属线程。
func (lh *LocalHeap) TID() int64 { return lh.tid }

// Heap 绑定的后端堆。
func (lh *LocalHeap) Heap() Heap { return lh.heap }

// Released 存储是否已归还。
func (lh *LocalHeap) Released() bool { return lh.state == nil }

// Malloc 从后端堆分配 n 字节。
func (lh *LocalHeap) Malloc(n uint32) ([]byte, bool) {
	st := lh.state
	if st == nil {
		return nil, false
	}
	b, ok := lh.heap.Malloc(n)
	if ok {
		atomic.AddUint64(&st.Mallocs, 1)
		atomic.AddUint64(&st.Bytes, uint64(len(b)))
	}
	return b, ok
}

// Free 归还 b。
func (lh *LocalHeap) Free(b []byte) {
	if b == nil {
		return
	}
	if st := lh.state; st != nil {
		atomic.AddUint64(&st.Frees, 1)
		bytes := atomic.LoadUint64(&st.Bytes)
		atomic.StoreUint64(&st.Bytes, bytes-min(bytes, uint64(len(b))))
	}
	lh.heap.Free(b)
}

// Stats 当前计数。
func (lh *LocalHeap) Stats() LocalStats {
	st := lh.state
	if st == nil {
		return LocalStats{TID: lh.tid}
	}
	return LocalStats{
		TID:     lh.tid,
		Mallocs: atomic.LoadUint64(&st.Mallocs),
		Frees:   atomic.LoadUint64(&st.Frees),
		Bytes:   atomic.LoadUint64(&st.Bytes),
	}
}

func (lh *LocalHeap) release() {
	buf := lh.buf
	lh.buf, lh.state = nil, nil
	lh.heap.Free(buf)
}
