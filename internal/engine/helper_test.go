package engine

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"shm_runtime/internal/record"
)

type fakeHeap struct {
	mu      sync.Mutex
	fail    bool
	mallocs int
	frees   int
	dumps   atomic.Int64
}

func (h *fakeHeap) Malloc(n uint32) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return nil, false
	}
	h.mallocs++
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n), true
}

func (h *fakeHeap) Free(b []byte) {
	h.mu.Lock()
	h.frees++
	h.mu.Unlock()
}

func (h *fakeHeap) DumpStrings() { h.dumps.Add(1) }

func (h *fakeHeap) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mallocs, h.frees
}

// pipeChannel 不接管信号的通知通道，测试可以直接写原始字节。
type pipeChannel struct {
	r, w *os.File
	seq  uint64
}

func newPipeChannel(t *testing.T) *pipeChannel {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	c := &pipeChannel{r: r, w: w}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (c *pipeChannel) Read(b []byte) (int, error) { return c.r.Read(b) }

func (c *pipeChannel) Post(signo int) error {
	c.seq++
	_, err := c.w.Write(record.New(signo, os.Getpid(), c.seq).Marshal())
	return err
}

func (c *pipeChannel) Close() error {
	err := c.w.Close()
	_ = c.r.Close()
	return err
}

var errSpawn = errors.New("spawn: resource temporarily unavailable")

type fatalSink struct {
	ch chan string
}

func newFatalSink() *fatalSink { return &fatalSink{ch: make(chan string, 4)} }

func (f *fatalSink) handle(m string) { f.ch <- m }

func panicOnFatal(m string) { panic(m) }

func testRuntime(t *testing.T, heap Heap, opts Options) (*Runtime, *pipeChannel) {
	t.Helper()
	r := newRuntime(heap, opts)
	c := newPipeChannel(t)
	r.ch = c
	return r, c
}
