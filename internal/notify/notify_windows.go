//go:build windows

package notify

import (
	"fmt"
	"os"
	"syscall"
)

const maxSignal = 0x1f

// Open windows 没有可接管的用户信号，只建管道，记录只来自 Post。
func Open(sig syscall.Signal) (*Channel, error) {
	if err := checkSignal(sig); err != nil {
		return nil, err
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("notify pipe: %w", err)
	}
	return newChannel(sig, r, w), nil
}

func (c *Channel) disarm() {}
