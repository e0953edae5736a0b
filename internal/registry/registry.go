// Package registry 按线程 id 存放每线程对象的分片表。
package registry

import (
	"sync"

	"shm_runtime/msg"
)

type shard[V any] struct {
	rw   sync.RWMutex
	slot map[int64]V
}

// Registry 分片 map，key 为线程 id。
type Registry[V any] struct {
	shards []shard[V]
}

// New 创建 shardNum 个分片，shardNum<=0 时用默认值。
func New[V any](shardNum int) *Registry[V] {
	if shardNum <= 0 {
		shardNum = msg.ShardSize
	}
	shards := make([]shard[V], shardNum)
	for i := range shards {
		shards[i].slot = make(map[int64]V)
	}
	return &Registry[V]{shards: shards}
}

func (r *Registry[V]) shard(tid int64) *shard[V] {
	return &r.shards[shardOf(tid, uint32(len(r.shards)))]
}

func (r *Registry[V]) Get(tid int64) (V, bool) {
	sh := r.shard(tid)
	sh.rw.RLock()
	v, ok := sh.slot[tid]
	sh.rw.RUnlock()
	return v, ok
}

// Insert 只在 tid 尚无对象时写入；已有时返回旧值和 false，不覆盖。
func (r *Registry[V]) Insert(tid int64, v V) (V, bool) {
	sh := r.shard(tid)
	sh.rw.Lock()
	defer sh.rw.Unlock()
	if old, ok := sh.slot[tid]; ok {
		return old, false
	}
	sh.slot[tid] = v
	return v, true
}

// Remove 删除并返回 tid 的对象。
func (r *Registry[V]) Remove(tid int64) (V, bool) {
	sh := r.shard(tid)
	sh.rw.Lock()
	v, ok := sh.slot[tid]
	delete(sh.slot, tid)
	sh.rw.Unlock()
	return v, ok
}

// Len 所有分片的条目总数。
func (r *Registry[V]) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.rw.RLock()
		n += len(sh.slot)
		sh.rw.RUnlock()
	}
	return n
}

// Range 逐分片遍历，f 返回 false 时停止。f 内不可再调用 Registry 的写方法。
func (r *Registry[V]) Range(f func(tid int64, v V) bool) {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.rw.RLock()
		for tid, v := range sh.slot {
			if !f(tid, v) {
				sh.rw.RUnlock()
				return
			}
		}
		sh.rw.RUnlock()
	}
}
