// Package engine 是运行时外壳：信号驱动的后台诊断线程、全局锁、每线程堆的发放。
package engine

import (
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"shm_runtime/internal/errs"
	"shm_runtime/internal/fixed"
	"shm_runtime/internal/log"
	"shm_runtime/internal/notify"
	"shm_runtime/internal/registry"
	"shm_runtime/internal/tid"
	"shm_runtime/msg"
)

// Options 构造参数，零值取默认。
type Options struct {
	Signal          syscall.Signal
	MaxSpawnRetries int
	SpawnLogEvery   int
	Spawner         Spawner
	// OnFatal 替换默认的进程退出；返回后调用方放弃当前操作。
	OnFatal        func(msg string)
	TracerProvider trace.TracerProvider
}

type channel interface {
	Read(b []byte) (int, error)
	Post(signo int) error
	Close() error
}

// Runtime 进程级单例。heap 由外部构造和持有，须比 Runtime 活得久。
type Runtime struct {
	mu sync.Mutex

	id    string
	heap  Heap
	ch    channel
	heaps *registry.Registry[*LocalHeap]

	signo      syscall.Signal
	maxRetries int
	logEvery   int
	spawn      Spawner
	onFatal    func(string)
	tracer     trace.Tracer

	started atomic.Bool
	state   atomic.Int32
	dumps   atomic.Uint64
}

func newRuntime(heap Heap, opts Options) *Runtime {
	r := &Runtime{
		id:         uuid.New().String(),
		heap:       heap,
		heaps:      registry.New[*LocalHeap](msg.ShardSize),
		signo:      opts.Signal,
		maxRetries: opts.MaxSpawnRetries,
		logEvery:   opts.SpawnLogEvery,
		spawn:      opts.Spawner,
		onFatal:    opts.OnFatal,
	}
	if r.signo == 0 {
		r.signo = msg.SigDump
	}
	if r.maxRetries <= 0 {
		r.maxRetries = msg.MaxSpawnRetries
	}
	if r.logEvery <= 0 {
		r.logEvery = msg.SpawnLogEvery
	}
	if r.spawn == nil {
		r.spawn = GoSpawner
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	r.tracer = tp.Tracer("shm_runtime/engine")
	return r
}

// New 构造 Runtime 并立即接管诊断信号；接管失败是致命错误。
func New(heap Heap, opts Options) *Runtime {
	r := newRuntime(heap, opts)
	ch, err := notify.Open(r.signo)
	if err != nil {
		r.fatal("failed to create signal channel", "signal", r.signo, "err", err)
		return r
	}
	r.ch = ch
	r.logger().V(1).Info("runtime armed", "signal", r.signo)
	return r
}

// Failed 配置不可用时的构造：不接管信号，直接走致命路径。OnFatal 返回后得到的 Runtime
// 没有通知通道，TriggerDump 返回 errs.ErrClosed，Close 什么也不做。
func Failed(heap Heap, opts Options, m string, kv ...any) *Runtime {
	r := newRuntime(heap, opts)
	r.fatal(m, kv...)
	return r
}

func (r *Runtime) logger() logr.Logger {
	return log.L().WithValues("runtime", r.id)
}

func (r *Runtime) fatal(m string, kv ...any) {
	kv = append(kv, "runtime", r.id)
	if r.onFatal != nil {
		log.L().Error(nil, m, kv...)
		r.onFatal(m)
		return
	}
	log.Fatal(m, kv...)
}

// ID 本实例的标识，出现在所有日志里。
func (r *Runtime) ID() string { return r.id }

// Heap 后端堆。
func (r *Runtime) Heap() Heap { return r.heap }

// Signal 诊断信号。
func (r *Runtime) Signal() syscall.Signal { return r.signo }

// Lock 获取全局锁，不可重入。
func (r *Runtime) Lock() { r.mu.Lock() }

// Unlock 释放全局锁。
func (r *Runtime) Unlock() { r.mu.Unlock() }

// AllocLocalHeap 为当前线程分配前端。线程已有前端是致命错误。
// 调用后 goroutine 固定在当前 OS 线程上，直到 ReleaseLocalHeap。
func (r *Runtime) AllocLocalHeap() *LocalHeap {
	runtime.LockOSThread()
	id := tid.Current()
	if _, ok := r.heaps.Get(id); ok {
		runtime.UnlockOSThread()
		r.fatal("local heap already allocated for thread", "tid", id)
		return nil
	}
	buf, ok := r.heap.Malloc(fixed.Size[localState]())
	if !ok {
		runtime.UnlockOSThread()
		r.fatal("unable to allocate LocalHeap, aborting", "tid", id)
		return nil
	}
	lh, err := newLocalHeap(id, r.heap, buf)
	if err != nil {
		r.heap.Free(buf)
		runtime.UnlockOSThread()
		r.fatal("unable to construct LocalHeap, aborting", "tid", id, "err", err)
		return nil
	}
	r.heaps.Insert(id, lh)
	return lh
}

// LocalHeap 返回当前线程的前端，首次调用时创建。
func (r *Runtime) LocalHeap() *LocalHeap {
	runtime.LockOSThread()
	lh, ok := r.heaps.Get(tid.Current())
	runtime.UnlockOSThread()
	if ok {
		return lh
	}
	return r.AllocLocalHeap()
}

// ReleaseLocalHeap 线程退出前调用：存储还给后端堆，解除线程固定。没有前端时什么也不做。
// 固定状态下直接退出的 goroutine 会带走线程，槽位留到 tid 被复用为止。
func (r *Runtime) ReleaseLocalHeap() {
	runtime.LockOSThread()
	lh, ok := r.heaps.Remove(tid.Current())
	runtime.UnlockOSThread()
	if !ok {
		return
	}
	lh.release()
	runtime.UnlockOSThread()
}

// Threads 持有前端的线程数。
func (r *Runtime) Threads() int { return r.heaps.Len() }

// ThreadStats 所有存活前端的计数快照，顺序不定。
func (r *Runtime) ThreadStats() []LocalStats {
	out := make([]LocalStats, 0, r.heaps.Len())
	r.heaps.Range(func(_ int64, lh *LocalHeap) bool {
		out = append(out, lh.Stats())
		return true
	})
	return out
}

// TriggerDump 管理命令：投递一条诊断信号记录，由后台线程处理。
func (r *Runtime) TriggerDump() error {
	if r.ch == nil {
		return errs.ErrClosed
	}
	return r.ch.Post(int(r.signo))
}

// Close 解除信号接管并关闭通道，后台线程随之进入 Terminated。
func (r *Runtime) Close() error {
	if r.ch == nil {
		return nil
	}
	return r.ch.Close()
}
