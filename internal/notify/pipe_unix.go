//go:build unix && !linux

package notify

import "golang.org/x/sys/unix"

// pipe 没有 pipe2 的平台上分两步设置 CLOEXEC 与非阻塞。
func pipe() ([2]int, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return p, err
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return p, err
		}
	}
	return p, nil
}
