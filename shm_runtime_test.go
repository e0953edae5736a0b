//go:build unix

package shm_runtime

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"shm_runtime/msg"
)

func openRuntime(t *testing.T) (*Runtime, *Arena) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Arena.Size = 1 << 20
	a, err := OpenArena(cfg.Arena)
	require.NoError(t, err)
	rt := New(a, cfg, WithFatalHandler(func(m string) { panic(m) }))
	a.SetLocker(rt)
	t.Cleanup(func() {
		_ = rt.Close()
		_ = a.Close()
	})
	return rt, a
}

func TestEndToEnd(t *testing.T) {
	rt, a := openRuntime(t)
	assert.NotEmpty(t, rt.ID())
	rt.StartBackgroundWorker()
	assert.Eventually(t, func() bool { return rt.WorkerState() == Armed }, 2*time.Second, 5*time.Millisecond)

	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lh := rt.LocalHeap()
			defer rt.ReleaseLocalHeap()
			var blocks [][]byte
			for j := 0; j < 100; j++ {
				b, ok := lh.Malloc(uint32(16 + j))
				if !assert.True(t, ok) {
					return
				}
				blocks = append(blocks, b)
			}
			for _, b := range blocks {
				lh.Free(b)
			}
			st := lh.Stats()
			assert.EqualValues(t, 100, st.Mallocs)
			assert.EqualValues(t, 100, st.Frees)
			assert.Zero(t, st.Bytes)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, rt.Threads())
	assert.Equal(t, 0, a.Stats().Blocks)

	require.NoError(t, unix.Kill(os.Getpid(), rt.Signal()))
	assert.Eventually(t, func() bool { return rt.Dumps() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, rt.TriggerDump())
	assert.Eventually(t, func() bool { return rt.Dumps() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, rt.Close())
	assert.Eventually(t, func() bool { return rt.WorkerState() == Terminated }, 2*time.Second, 5*time.Millisecond)
}

func TestDoubleAllocIsFatal(t *testing.T) {
	rt, _ := openRuntime(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.AllocLocalHeap()
		defer rt.ReleaseLocalHeap()
		assert.Panics(t, func() { rt.AllocLocalHeap() })
	}()
	<-done
}

func TestGlobalLock(t *testing.T) {
	rt, _ := openRuntime(t)
	const m, c = 8, 10000
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < c; j++ {
				rt.Lock()
				counter++
				rt.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, m*c, counter)
}

func TestMeasurePssFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smaps_rollup")
	require.NoError(t, os.WriteFile(path, []byte("Pss:   1234 kB\n"), 0644))
	cfg := DefaultConfig()
	cfg.SmapsPath = path
	a, err := OpenArena(ArenaConfig{Size: 4096})
	require.NoError(t, err)
	defer a.Close()
	rt := New(a, cfg)
	defer rt.Close()
	assert.EqualValues(t, 1234, rt.MeasurePssKiB())
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(dstPath, make([]byte, 32), 0644))
	dst, err := os.OpenFile(dstPath, os.O_RDWR, 0644)
	require.NoError(t, err)
	defer dst.Close()
	srcPath := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(srcPath, []byte("snapshot"), 0644))
	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()

	n, err := CopyFile(int(dst.Fd()), int(src.Fd()), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	got, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot"), got[8:16])
	assert.Equal(t, make([]byte, 8), got[:8])
	assert.Equal(t, make([]byte, 16), got[16:])
}

func TestNilRuntime(t *testing.T) {
	var rt *Runtime
	assert.ErrorIs(t, rt.TriggerDump(), ErrClosed)
	assert.NoError(t, rt.Close())
}

func TestNewInvalidSignalIsFatal(t *testing.T) {
	a, err := OpenArena(ArenaConfig{Size: 4096})
	require.NoError(t, err)
	defer a.Close()

	var fatal []string
	rt := New(a, &Config{Signal: 200}, WithFatalHandler(func(m string) { fatal = append(fatal, m) }))
	assert.Equal(t, []string{"invalid runtime config"}, fatal)
	assert.ErrorIs(t, rt.TriggerDump(), ErrClosed)

	closed := make(chan error, 1)
	go func() { closed <- rt.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on an unarmed runtime")
	}
}

func TestNewPartialConfigKeepsPssProbe(t *testing.T) {
	a, err := OpenArena(ArenaConfig{Size: 4096})
	require.NoError(t, err)
	defer a.Close()
	rt := New(a, &Config{MaxSpawnRetries: 5})
	defer rt.Close()

	assert.Equal(t, msg.SmapsRollup, rt.cfg.SmapsPath)
	assert.Equal(t, msg.SigDump, rt.Signal())
	if _, err := os.Stat(msg.SmapsRollup); err == nil {
		assert.Positive(t, rt.MeasurePssKiB())
	}
}

func TestReadPssKiB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smaps_rollup")
	require.NoError(t, os.WriteFile(path, []byte("Rss: 10 kB\n"), 0644))
	_, err := ReadPssKiB(path)
	assert.ErrorIs(t, err, ErrNoPss)
}
