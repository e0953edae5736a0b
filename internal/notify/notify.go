// Package notify 把诊断信号转换成一个可阻塞读取的通知通道。
//
// 信号由 signal.Notify 接管（进程级，不再走默认处置），relay goroutine 把每次投递
// 编码为定长记录，一次 write 写进管道；读端每次读一条记录。管理命令 Post 走同一条管道。
package notify

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"shm_runtime/internal/errs"
	"shm_runtime/internal/log"
	"shm_runtime/internal/record"
)

// Channel 信号通知通道。
type Channel struct {
	signo syscall.Signal
	r, w  *os.File
	sigCh chan os.Signal
	seq   atomic.Uint64
	wmu   sync.Mutex
	once  sync.Once
}

// checkSignal 拒绝平台范围外的信号号；signal.Notify 会静默忽略它们，之后的 Stop 永不返回。
func checkSignal(sig syscall.Signal) error {
	if sig <= 0 || sig > maxSignal {
		return fmt.Errorf("signal %d out of range (0, %d]: %w", int(sig), maxSignal, errs.ErrBadArgument)
	}
	return nil
}

func newChannel(sig syscall.Signal, r, w *os.File) *Channel {
	return &Channel{signo: sig, r: r, w: w}
}

// Signal 通道绑定的信号。
func (c *Channel) Signal() syscall.Signal { return c.signo }

// Read 单次读取，不拼接短读。
func (c *Channel) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

// Post 写入一条 signo 的记录。
func (c *Channel) Post(signo int) error {
	rec := record.New(signo, os.Getpid(), c.seq.Add(1))
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.w.Write(rec.Marshal())
	return err
}

func (c *Channel) relay() {
	for s := range c.sigCh {
		signo, ok := s.(syscall.Signal)
		if !ok {
			continue
		}
		if err := c.Post(int(signo)); err != nil {
			log.Debug("notify: dropped signal record", "signo", int(signo), "err", err)
		}
	}
}

// Close 解除信号接管并关闭管道，阻塞中的 Read 返回错误。
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		c.disarm()
		c.wmu.Lock()
		err = c.w.Close()
		c.wmu.Unlock()
		if rerr := c.r.Close(); err == nil {
			err = rerr
		}
	})
	return err
}
