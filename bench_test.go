//go:build unix

package shm_runtime

import (
	"testing"
)

func mustOpenBenchRuntime(b *testing.B) *Runtime {
	b.Helper()
	a, err := OpenArena(ArenaConfig{Size: 64 << 20})
	if err != nil {
		b.Fatalf("OpenArena: %v", err)
	}
	rt := New(a, nil)
	a.SetLocker(rt)
	b.Cleanup(func() {
		_ = rt.Close()
		_ = a.Close()
	})
	return rt
}

func BenchmarkLockParallel(b *testing.B) {
	rt := mustOpenBenchRuntime(b)
	n := 0
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			rt.Lock()
			n++
			rt.Unlock()
		}
	})
}

func BenchmarkLocalHeapMallocFree(b *testing.B) {
	rt := mustOpenBenchRuntime(b)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		lh := rt.LocalHeap()
		defer rt.ReleaseLocalHeap()
		for pb.Next() {
			p, ok := lh.Malloc(64)
			if !ok {
				b.Error("Malloc failed")
				return
			}
			lh.Free(p)
		}
	})
}

func BenchmarkMeasurePss(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = MeasurePssKiB()
	}
}
