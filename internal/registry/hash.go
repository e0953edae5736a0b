package registry

import (
	"encoding/binary"
	"hash/fnv"
)

// shardOf 对 tid 做 FNV-1a，取模得到分片号。
func shardOf(tid int64, modNum uint32) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(tid))
	h := fnv.New32a()
	_, _ = h.Write(b[:])
	return int(h.Sum32() % modNum)
}
