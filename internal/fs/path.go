package fs

import "fmt"

// SnapshotPath 返回 base 对应第 id 份 arena 快照的路径。
func SnapshotPath(base string, id uint32) string {
	return fmt.Sprintf("%s.%03d.snap", base, id)
}
