package fixed

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters struct {
	TID    int64
	Allocs uint64
	Name   [8]byte
}

type withPtr struct {
	N int
	P *int
}

func alignedBuf(n int) []byte {
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

func TestPlace(t *testing.T) {
	buf := alignedBuf(64)
	for i := range buf {
		buf[i] = 0xff
	}
	c, err := Place[counters](buf)
	require.NoError(t, err)
	assert.Zero(t, c.TID)
	assert.Zero(t, c.Allocs)

	c.Allocs = 3
	assert.Equal(t, unsafe.Pointer(&buf[0]), unsafe.Pointer(c))
	assert.EqualValues(t, 3, buf[8])
}

func TestPlaceRejectsPointers(t *testing.T) {
	_, err := Place[withPtr](alignedBuf(64))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "field P")
}

func TestPlaceTooSmall(t *testing.T) {
	_, err := Place[counters](alignedBuf(4))
	assert.Error(t, err)
}

func TestSize(t *testing.T) {
	assert.EqualValues(t, 24, Size[counters]())
}
