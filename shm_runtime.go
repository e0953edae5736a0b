package shm_runtime

import (
	"syscall"

	"go.opentelemetry.io/otel/trace"

	"shm_runtime/internal/arena"
	"shm_runtime/internal/engine"
	"shm_runtime/internal/errs"
	"shm_runtime/internal/fcopy"
	"shm_runtime/internal/log"
	"shm_runtime/internal/procstat"
)

// 对外暴露的 sentinel errors，便于调用方 errors.Is。
var (
	ErrNoSpace      = errs.ErrNoSpace
	ErrBadArgument  = errs.ErrBadArgument
	ErrClosed       = errs.ErrClosed
	ErrNotSupported = errs.ErrNotSupported
	ErrNoPss        = errs.ErrNoPss
)

type (
	Heap       = engine.Heap
	LocalHeap  = engine.LocalHeap
	LocalStats = engine.LocalStats
	State      = engine.State
	Spawner    = engine.Spawner
	Arena      = arena.Arena
	ArenaStats = arena.Stats
)

const (
	Idle       = engine.Idle
	Armed      = engine.Armed
	Dumping    = engine.Dumping
	Terminated = engine.Terminated
)

// Option 调整 New 的行为。
type Option func(o *engine.Options)

// WithSpawner 替换后台线程的创建方式。
func WithSpawner(s Spawner) Option {
	return func(o *engine.Options) { o.Spawner = s }
}

// WithFatalHandler 替换致命错误时的进程退出。
func WithFatalHandler(h func(msg string)) Option {
	return func(o *engine.Options) { o.OnFatal = h }
}

// WithTracerProvider dump span 使用的 provider，默认全局 provider。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *engine.Options) { o.TracerProvider = tp }
}

// Runtime 进程级运行时。
type Runtime struct {
	e   *engine.Runtime
	cfg *Config
}

// New 构造运行时并接管诊断信号。heap 须先于 Runtime 构造、晚于它销毁；
// 需要全局锁的 heap 在 New 之后绑定，例如 arena.SetLocker(rt)。
// cfg 的零值字段取 DefaultConfig；校验不过与信号接管失败一样是致命错误。
func New(heap Heap, cfg *Config, opts ...Option) *Runtime {
	cfg = cfg.withDefaults()
	o := engine.Options{
		Signal:          syscall.Signal(cfg.Signal),
		MaxSpawnRetries: cfg.MaxSpawnRetries,
		SpawnLogEvery:   cfg.SpawnLogEvery,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return &Runtime{e: engine.Failed(heap, o, "invalid runtime config", "err", err), cfg: cfg}
	}
	if cfg.Verbosity > 0 {
		log.SetVerbosity(cfg.Verbosity)
	}
	return &Runtime{e: engine.New(heap, o), cfg: cfg}
}

// OpenArena 按配置打开 mmap 后端堆。
func OpenArena(cfg ArenaConfig) (*Arena, error) {
	return arena.Open(cfg.Path, cfg.Size)
}

func (rt *Runtime) Lock() {
	rt.e.Lock()
}

func (rt *Runtime) Unlock() {
	rt.e.Unlock()
}

// StartBackgroundWorker 启动后台诊断线程。
func (rt *Runtime) StartBackgroundWorker() {
	rt.e.StartBackgroundWorker()
}

// AllocLocalHeap 为当前线程分配前端，已存在时终止进程。
func (rt *Runtime) AllocLocalHeap() *LocalHeap {
	return rt.e.AllocLocalHeap()
}

// LocalHeap 当前线程的前端，首次调用时创建。
func (rt *Runtime) LocalHeap() *LocalHeap {
	return rt.e.LocalHeap()
}

// ReleaseLocalHeap 线程退出前归还前端。
func (rt *Runtime) ReleaseLocalHeap() {
	rt.e.ReleaseLocalHeap()
}

func (rt *Runtime) TriggerDump() error {
	if rt == nil || rt.e == nil {
		return ErrClosed
	}
	return rt.e.TriggerDump()
}

func (rt *Runtime) WorkerState() State { return rt.e.WorkerState() }

func (rt *Runtime) Dumps() uint64 { return rt.e.Dumps() }

func (rt *Runtime) Threads() int { return rt.e.Threads() }

// ThreadStats 所有存活前端的计数。
func (rt *Runtime) ThreadStats() []LocalStats { return rt.e.ThreadStats() }

func (rt *Runtime) ID() string { return rt.e.ID() }

func (rt *Runtime) Signal() syscall.Signal { return rt.e.Signal() }

// MeasurePssKiB 按配置的记账文件读取本进程 PSS。
func (rt *Runtime) MeasurePssKiB() uint64 {
	return procstat.MeasurePssKiBFrom(rt.cfg.SmapsPath)
}

func (rt *Runtime) Close() error {
	if rt == nil || rt.e == nil {
		return nil
	}
	return rt.e.Close()
}

// MeasurePssKiB 本进程 PSS（KiB），读不到返回 0。
func MeasurePssKiB() uint64 {
	return procstat.MeasurePssKiB()
}

// ReadPssKiB 同 MeasurePssKiB，但把失败原因交给调用方；没有 Pss 行时返回 ErrNoPss。
func ReadPssKiB(path string) (uint64, error) {
	return procstat.ReadPssKiB(path)
}

// CopyFile 从 srcFd 当前位置拷贝 sz 字节到 dstFd 的 off 处，返回底层调用的结果。
func CopyFile(dstFd, srcFd int, off int64, sz int) (int, error) {
	return fcopy.CopyFile(dstFd, srcFd, off, sz)
}
