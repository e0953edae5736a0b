package engine

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shm_runtime/internal/record"
	"shm_runtime/msg"
)

// State 后台线程状态。
type State int32

const (
	Idle State = iota
	Armed
	Dumping
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dumping:
		return "dumping"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Spawner 启动一个执行 fn 的线程，失败返回 error。
type Spawner func(fn func()) error

// GoSpawner 在独占 OS 线程的 goroutine 上运行 fn。
func GoSpawner(fn func()) error {
	go func() {
		runtime.LockOSThread()
		fn()
	}()
	return nil
}

// WorkerState 后台线程当前状态。
func (r *Runtime) WorkerState() State { return State(r.state.Load()) }

// Dumps 已完成的 dump 次数。
func (r *Runtime) Dumps() uint64 { return r.dumps.Load() }

// StartBackgroundWorker 启动后台诊断线程，只生效一次。
// 创建失败让出处理器后重试，超过 maxRetries 次是致命错误。
func (r *Runtime) StartBackgroundWorker() {
	if !r.started.CompareAndSwap(false, true) {
		r.logger().V(1).Info("background thread already started")
		return
	}
	if r.ch == nil {
		r.fatal("no signal channel, background thread not started")
		return
	}
	retry := 0
	for {
		err := r.spawn(r.bgThread)
		if err == nil {
			return
		}
		retry++
		runtime.Gosched()

		if retry == 1 || retry%r.logEvery == 0 {
			r.logger().Info("background thread creation failed, retrying", "retry", retry, "err", err)
		}
		if retry >= r.maxRetries {
			r.fatal("max retries exceeded: couldn't create bg thread, exiting", "retries", retry)
			return
		}
	}
}

func (r *Runtime) bgThread() {
	l := r.logger()
	l.V(1).Info("background thread started")
	buf := make([]byte, msg.RecordSize)
	for {
		r.state.Store(int32(Armed))
		n, err := r.ch.Read(buf)
		if err != nil {
			// 通道关闭或进程即将退出
			r.state.Store(int32(Terminated))
			l.V(1).Info("background thread exiting", "err", err)
			return
		}
		if n != msg.RecordSize {
			r.state.Store(int32(Terminated))
			r.fatal("bad read size", "n", n)
			return
		}
		rec := record.Decode(buf)
		if !rec.Valid() || rec.Signo != uint32(r.signo) {
			l.Info("read unexpected signal", "signo", rec.Signo, "magic", rec.Magic)
			continue
		}
		r.dump(rec)
	}
}

func (r *Runtime) dump(rec record.Record) {
	r.state.Store(int32(Dumping))
	_, span := r.tracer.Start(context.Background(), "heap.dump",
		trace.WithAttributes(
			attribute.Int("signo", int(rec.Signo)),
			attribute.Int("pid", int(rec.Pid)),
			attribute.Int64("seq", int64(rec.Seq)),
		))
	defer span.End()
	r.heap.DumpStrings()
	l := r.logger()
	for _, st := range r.ThreadStats() {
		l.Info("local heap", "tid", st.TID, "mallocs", st.Mallocs, "frees", st.Frees, "bytes", st.Bytes)
	}
	r.dumps.Add(1)
}
