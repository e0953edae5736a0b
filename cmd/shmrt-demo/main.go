//go:build unix

package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"shm_runtime"
	"shm_runtime/internal/fs"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file")
	workers := flag.Int("workers", 4, "allocating goroutines")
	snapshot := flag.Bool("snapshot", true, "copy the arena to a snapshot file after the run")
	flag.Parse()

	cfg := shm_runtime.DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = shm_runtime.LoadConfig(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if cfg.Arena.Path == "" {
		cfg.Arena.Path = "./heap.arena"
	}

	heap, err := shm_runtime.OpenArena(cfg.Arena)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer heap.Close()

	rt := shm_runtime.New(heap, cfg)
	heap.SetLocker(rt)
	rt.StartBackgroundWorker()

	// 快照里留一块带运行时 ID 的标记
	if mark, err := heap.Alloc(64); err != nil {
		fmt.Fprintln(os.Stderr, "marker:", err)
	} else {
		copy(mark, rt.ID())
	}

	var wg sync.WaitGroup
	wg.Add(*workers)
	for i := 0; i < *workers; i++ {
		go func(i int) {
			defer wg.Done()
			lh := rt.LocalHeap()
			defer rt.ReleaseLocalHeap()
			for j := 0; j < 1000; j++ {
				b, ok := lh.Malloc(uint32(16 + j%256))
				if !ok {
					break
				}
				if j%3 == 0 {
					lh.Free(b)
				}
			}
			st := lh.Stats()
			fmt.Printf("worker %d tid=%d mallocs=%d frees=%d bytes=%d\n", i, st.TID, st.Mallocs, st.Frees, st.Bytes)
		}(i)
	}
	wg.Wait()

	fmt.Printf("pss=%d KiB\n", rt.MeasurePssKiB())
	_ = unix.Kill(os.Getpid(), rt.Signal())
	for start := time.Now(); rt.Dumps() == 0 && time.Since(start) < time.Second; {
		time.Sleep(10 * time.Millisecond)
	}

	if *snapshot {
		path := fs.SnapshotPath(cfg.Arena.Path, 0)
		out, err := os.Create(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer out.Close()
		n, err := heap.Snapshot(out, 0)
		fmt.Printf("snapshot %s: %d bytes err=%v\n", path, n, err)
	}
}
