package record

import (
	"encoding/binary"

	"shm_runtime/msg"
)

// Record 通知通道上的一条信号记录（magic/version/signo/pid/seq）。
type Record struct {
	Magic uint32
	Ver   uint16
	_     uint16
	Signo uint32
	Pid   uint32
	Seq   uint64
}

// New 为 signo 生成一条记录。
func New(signo int, pid int, seq uint64) Record {
	return Record{
		Magic: msg.Magic,
		Ver:   msg.Version,
		Signo: uint32(signo),
		Pid:   uint32(pid),
		Seq:   seq,
	}
}

// Valid magic 与 version 都匹配。
func (r Record) Valid() bool {
	return r.Magic == msg.Magic && r.Ver == msg.Version
}

// Decode 从 data 解码一条记录，data 至少 RecordSize 字节。
func Decode(data []byte) Record {
	return Record{
		Magic: binary.LittleEndian.Uint32(data[0:4]),
		Ver:   binary.LittleEndian.Uint16(data[4:6]),
		Signo: binary.LittleEndian.Uint32(data[8:12]),
		Pid:   binary.LittleEndian.Uint32(data[12:16]),
		Seq:   binary.LittleEndian.Uint64(data[16:24]),
	}
}

// Encode 将 r 编码到 b（至少 RecordSize 字节）。
func Encode(b []byte, r Record) {
	binary.LittleEndian.PutUint32(b[0:4], r.Magic)
	binary.LittleEndian.PutUint16(b[4:6], r.Ver)
	binary.LittleEndian.PutUint16(b[6:8], 0)
	binary.LittleEndian.PutUint32(b[8:12], r.Signo)
	binary.LittleEndian.PutUint32(b[12:16], r.Pid)
	binary.LittleEndian.PutUint64(b[16:24], r.Seq)
}

// Marshal 返回编码后的 RecordSize 字节。
func (r Record) Marshal() []byte {
	b := make([]byte, msg.RecordSize)
	Encode(b, r)
	return b
}
