package blockstore

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, blockSize uint32, numBlocks uint32) *Store {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := Open(fs, "disk.bin", blockSize, int64(blockSize)*int64(numBlocks))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAllocateSequential(t *testing.T) {
	s := newTestStore(t, 64, 10)
	for want := uint32(1); want < 10; want++ {
		got, err := s.Allocate()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := s.Allocate()
	require.ErrorIs(t, err, ErrDiskFull)
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t, 64, 4)
	id, err := s.Allocate()
	require.NoError(t, err)

	buf := make([]byte, s.BlockSize())
	copy(buf, []byte("hello block store"))
	require.NoError(t, s.Write(id, buf))

	got, err := s.Read(id)
	require.NoError(t, err)
	require.Equal(t, buf, got)
}

func TestInvalidBlockID(t *testing.T) {
	s := newTestStore(t, 64, 4)
	_, err := s.Read(0)
	require.ErrorIs(t, err, ErrInvalidBlockID)
	_, err = s.Read(4)
	require.ErrorIs(t, err, ErrInvalidBlockID)
}

func TestDeallocateReusesIDsInFIFOOrder(t *testing.T) {
	s := newTestStore(t, 64, 8)
	a, _ := s.Allocate()
	b, _ := s.Allocate()
	c, _ := s.Allocate()

	require.NoError(t, s.Deallocate(a))
	require.NoError(t, s.Deallocate(b))

	next, err := s.Allocate()
	require.NoError(t, err)
	require.Equal(t, a, next, "free queue is FIFO: a was freed first")

	next2, err := s.Allocate()
	require.NoError(t, err)
	require.Equal(t, b, next2)

	require.NotEqual(t, c, a)
}

func TestDeallocateZeroesBlock(t *testing.T) {
	s := newTestStore(t, 64, 4)
	id, _ := s.Allocate()
	buf := make([]byte, s.BlockSize())
	for i := range buf {
		buf[i] = 0xAB
	}
	require.NoError(t, s.Write(id, buf))
	require.NoError(t, s.Deallocate(id))

	// Read does not check allocation state, so the freed slot can be read directly.
	got, err := s.Read(id)
	require.NoError(t, err)
	for _, b := range got {
		require.Equal(t, byte(0), b)
	}
}

func TestNumBlocksUsed(t *testing.T) {
	s := newTestStore(t, 64, 8)
	a, _ := s.Allocate()
	_, _ = s.Allocate()
	require.Equal(t, uint32(2), s.NumBlocksUsed())
	require.NoError(t, s.Deallocate(a))
	require.Equal(t, uint32(1), s.NumBlocksUsed())
}
