// Package blockstore implements the simulated fixed-size block store: a
// dense arena of uniformly sized blocks backed by a single file, with
// allocation tracked by a next-free cursor and a FIFO free queue of
// deallocated block ids. Every other package in this module reaches disk
// exclusively through a Store.
package blockstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Defaults from spec §6's tunable parameters.
const (
	DefaultBlockSize uint32 = 500
	DefaultDiskSize  int64  = 200 * 1024 * 1024
)

var (
	// ErrInvalidBlockID is returned by Read/Write/Deallocate for any id
	// outside [1, NumBlocks), since id 0 is reserved as the null pointer.
	ErrInvalidBlockID = errors.New("blockstore: invalid block id")
	// ErrDiskFull is returned by Allocate when the arena is exhausted and
	// the free queue is empty.
	ErrDiskFull = errors.New("blockstore: disk full")
)

// Store is the process-wide block arena. It is constructed once per run
// and torn down with Close; between logical operations the backing file
// is the sole source of truth, matching spec §5.
type Store struct {
	fs        afero.Fs
	f         afero.File
	blockSize uint32
	numBlocks uint32
	nextFree  uint32 // next never-allocated slot; starts at 1 (0 is reserved)
	freeQueue []uint32
}

// Open creates or reopens the simulated disk at path on fs. A brand new
// file is zero-filled out to diskSize up front, matching the spec's
// "zero-initialized" block array — reads never have to special-case a
// short/sparse file the way a bare os.File would.
func Open(fs afero.Fs, path string, blockSize uint32, diskSize int64) (*Store, error) {
	if blockSize == 0 {
		return nil, fmt.Errorf("blockstore: block size must be positive")
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	numBlocks := uint32(diskSize / int64(blockSize))
	s := &Store{
		fs:        fs,
		f:         f,
		blockSize: blockSize,
		numBlocks: numBlocks,
		nextFree:  1,
	}
	if st.Size() == 0 {
		if err := f.Truncate(diskSize); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("blockstore: preallocate: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Close() error { return s.f.Close() }

func (s *Store) BlockSize() uint32 { return s.blockSize }
func (s *Store) NumBlocks() uint32 { return s.numBlocks }

// NumBlocksUsed reports how many block slots have ever been handed out by
// Allocate, minus those currently sitting in the free queue.
func (s *Store) NumBlocksUsed() uint32 {
	return (s.nextFree - 1) - uint32(len(s.freeQueue))
}

func (s *Store) validID(id uint32) bool {
	return id >= 1 && id < s.numBlocks
}

func (s *Store) offset(id uint32) int64 {
	return int64(id) * int64(s.blockSize)
}

// Read returns a fresh copy of the block at id. Callers must call Write to
// persist any mutation they make to the returned slice.
func (s *Store) Read(id uint32) ([]byte, error) {
	if !s.validID(id) {
		return nil, ErrInvalidBlockID
	}
	buf := make([]byte, s.blockSize)
	if _, err := s.f.ReadAt(buf, s.offset(id)); err != nil {
		return nil, fmt.Errorf("blockstore: read block %d: %w", id, err)
	}
	return buf, nil
}

// Write replaces the full contents of block id.
func (s *Store) Write(id uint32, block []byte) error {
	if !s.validID(id) {
		return ErrInvalidBlockID
	}
	if len(block) != int(s.blockSize) {
		return fmt.Errorf("blockstore: write block %d: wrong block length %d", id, len(block))
	}
	if _, err := s.f.WriteAt(block, s.offset(id)); err != nil {
		return fmt.Errorf("blockstore: write block %d: %w", id, err)
	}
	return nil
}

// Allocate hands out a block id: a FIFO free-queue entry if one exists,
// otherwise the next never-used slot. Reusing freed ids in release order
// keeps allocation behavior deterministic, which matters for the
// scenario-based tests in spec §8.
func (s *Store) Allocate() (uint32, error) {
	if len(s.freeQueue) > 0 {
		id := s.freeQueue[0]
		s.freeQueue = s.freeQueue[1:]
		return id, nil
	}
	if s.nextFree >= s.numBlocks {
		return 0, ErrDiskFull
	}
	id := s.nextFree
	s.nextFree++
	return id, nil
}

// Deallocate zeroes the block and appends its id to the free queue.
func (s *Store) Deallocate(id uint32) error {
	if !s.validID(id) {
		return ErrInvalidBlockID
	}
	zero := make([]byte, s.blockSize)
	if _, err := s.f.WriteAt(zero, s.offset(id)); err != nil {
		return fmt.Errorf("blockstore: zero block %d: %w", id, err)
	}
	s.freeQueue = append(s.freeQueue, id)
	return nil
}
