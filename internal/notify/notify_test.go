//go:build unix

package notify

import (
	"os"
	"syscall"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"shm_runtime/internal/errs"
	"shm_runtime/internal/log"
	"shm_runtime/internal/record"
	"shm_runtime/msg"
)

func readRecord(t *testing.T, c *Channel) record.Record {
	t.Helper()
	buf := make([]byte, msg.RecordSize)
	n, err := c.Read(buf)
	require.NoError(t, err)
	require.Equal(t, msg.RecordSize, n)
	return record.Decode(buf)
}

func TestPost(t *testing.T) {
	c, err := Open(msg.SigDump)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Post(int(msg.SigDump)))
	require.NoError(t, c.Post(int(msg.SigDump)))
	r1 := readRecord(t, c)
	r2 := readRecord(t, c)
	assert.True(t, r1.Valid())
	assert.EqualValues(t, msg.SigDump, r1.Signo)
	assert.EqualValues(t, os.Getpid(), r1.Pid)
	assert.Equal(t, r1.Seq+1, r2.Seq)
}

func TestSignalDelivery(t *testing.T) {
	c, err := Open(msg.SigDump)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, unix.Kill(os.Getpid(), msg.SigDump))
	r := readRecord(t, c)
	assert.EqualValues(t, syscall.SIGUSR2, r.Signo)
}

func TestShortWriteSurfacesAsShortRead(t *testing.T) {
	c, err := Open(msg.SigDump)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.w.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	buf := make([]byte, msg.RecordSize)
	n, err := c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCloseUnblocksRead(t *testing.T) {
	c, err := Open(msg.SigDump)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, msg.RecordSize)
		_, err := c.Read(buf)
		done <- err
	}()
	require.NoError(t, c.Close())
	assert.Error(t, <-done)
	assert.NoError(t, c.Close())
	assert.Error(t, c.Post(int(msg.SigDump)))
}

func TestOpenRejectsBadSignal(t *testing.T) {
	for _, sig := range []syscall.Signal{0, -1, 200, maxSignal + 1, syscall.SIGKILL, syscall.SIGSTOP} {
		c, err := Open(sig)
		assert.ErrorIs(t, err, errs.ErrBadArgument, "signal %d", int(sig))
		assert.Nil(t, c)
	}
}

func TestRelayLogsDroppedRecord(t *testing.T) {
	var lines []string
	old := log.L()
	log.SetLogger(funcr.New(func(_, args string) { lines = append(lines, args) }, funcr.Options{Verbosity: 1}))
	t.Cleanup(func() { log.SetLogger(old) })

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, w.Close())
	c := newChannel(msg.SigDump, r, w)
	c.sigCh = make(chan os.Signal, 1)
	c.sigCh <- msg.SigDump
	close(c.sigCh)

	c.relay()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "dropped signal record")
}
