//go:build unix

package notify

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shm_runtime/internal/errs"
)

// Open 创建非阻塞管道（交给 netpoller）并接管 sig。
func Open(sig syscall.Signal) (*Channel, error) {
	if err := checkSignal(sig); err != nil {
		return nil, err
	}
	if sig == syscall.SIGKILL || sig == syscall.SIGSTOP {
		return nil, fmt.Errorf("signal %d cannot be caught: %w", int(sig), errs.ErrBadArgument)
	}
	p, err := pipe()
	if err != nil {
		return nil, fmt.Errorf("notify pipe: %w", err)
	}
	c := newChannel(sig, os.NewFile(uintptr(p[0]), "shmrt-notify-r"), os.NewFile(uintptr(p[1]), "shmrt-notify-w"))
	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, sig)
	go c.relay()
	return c, nil
}

func (c *Channel) disarm() {
	signal.Stop(c.sigCh)
	close(c.sigCh)
}
