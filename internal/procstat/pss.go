// Package procstat 读取内核按进程给出的内存记账。
package procstat

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"

	"shm_runtime/internal/errs"
	"shm_runtime/internal/log"
	"shm_runtime/msg"
)

var pssKey = []byte("Pss:")

// MeasurePssKiB 返回本进程 PSS（KiB），读不到时返回 0。
func MeasurePssKiB() uint64 {
	return MeasurePssKiBFrom(msg.SmapsRollup)
}

// MeasurePssKiBFrom 从 path 读取 PSS，失败时记一条日志并返回 0。
func MeasurePssKiBFrom(path string) uint64 {
	kib, err := ReadPssKiB(path)
	if err != nil {
		log.L().Info("measurePssKiB: no Pss available", "path", path, "err", err)
		return 0
	}
	return kib
}

// ReadPssKiB 从 path 读一次固定大小的缓冲区并解析 Pss 行，不重试短读。
// 文件打不开时返回打开错误，找不到 Pss 行时返回 errs.ErrNoPss。
func ReadPssKiB(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, msg.PssBufLen-1)
	n, _ := f.Read(buf)
	_ = f.Close()

	kib, ok := ParsePssKiB(buf[:n])
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, errs.ErrNoPss)
	}
	return kib, nil
}

// ParsePssKiB 在 smaps_rollup 文本里找 "Pss:" 行，返回其数值。
func ParsePssKiB(text []byte) (uint64, bool) {
	sc := bufio.NewScanner(bytes.NewReader(text))
	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, pssKey) {
			continue
		}
		fields := bytes.Fields(line[len(pssKey):])
		if len(fields) == 0 {
			return 0, false
		}
		v, err := strconv.ParseUint(string(fields[0]), 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
