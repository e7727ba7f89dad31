package invariants

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"btreeidx/pkg/blockstore"
	"btreeidx/pkg/bptree"
	"btreeidx/pkg/codec"
	"btreeidx/pkg/dblock"
)

// rootIDOf peeks at the engine's persisted root by reading the meta block
// directly, mirroring how a second process would locate it.
func rootIDOf(t *testing.T, store *blockstore.Store) uint32 {
	t.Helper()
	buf, err := store.Read(1)
	require.NoError(t, err)
	return uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16 | uint32(buf[4])<<24
}

// recordSlot writes one record into a fresh data block and returns its
// pointer, so that Delete has a real record slot to zero.
func recordSlot(t *testing.T, store *blockstore.Store) codec.Pointer {
	t.Helper()
	id, err := store.Allocate()
	require.NoError(t, err)
	buf, err := store.Read(id)
	require.NoError(t, err)
	dblock.Init(buf, id, codec.RecordSize)
	raw, err := codec.EncodeRecord(codec.Record{ID: "x", Rating: codec.Rating{IntPart: 1}})
	require.NoError(t, err)
	off, _, err := dblock.InsertRecord(buf, raw)
	require.NoError(t, err)
	require.NoError(t, store.Write(id, buf))
	return codec.Pointer{BlockID: id, Offset: off}
}

func TestInvariantsHoldAfterManyInserts(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := blockstore.Open(fs, "idx.bin", 95, 4*1024*1024) // n=3
	require.NoError(t, err)
	tree, err := bptree.Open(store)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		key := codec.Key{Rating: codec.Rating{IntPart: uint16(i)}, ID: fmt.Sprintf("k%d", i)}
		require.NoError(t, tree.Insert(key, codec.Pointer{BlockID: 99, Offset: uint32(i)}))
	}

	checker := NewChecker(store)
	root := rootIDOf(t, store)
	require.NoError(t, checker.Check(root))

	leaves, keys, err := checker.CheckLeafChain(root)
	require.NoError(t, err)
	require.Equal(t, 20, keys)
	require.Greater(t, leaves, 1)

	h, err := tree.Height()
	require.NoError(t, err)
	require.Contains(t, []int{3, 4}, h)
}

func TestInvariantsHoldAfterInsertAndDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := blockstore.Open(fs, "idx.bin", 95, 4*1024*1024)
	require.NoError(t, err)
	tree, err := bptree.Open(store)
	require.NoError(t, err)

	for i := 1; i <= 30; i++ {
		key := codec.Key{Rating: codec.Rating{IntPart: uint16(i)}, ID: fmt.Sprintf("k%02d", i)}
		require.NoError(t, tree.Insert(key, recordSlot(t, store)))
	}
	hBefore, err := tree.Height()
	require.NoError(t, err)

	for i := 1; i <= 30; i += 2 {
		_, err := tree.Delete(float64(i))
		require.NoError(t, err)
	}

	checker := NewChecker(store)
	root := rootIDOf(t, store)
	require.NoError(t, checker.Check(root))

	_, keys, err := checker.CheckLeafChain(root)
	require.NoError(t, err)
	require.Equal(t, 15, keys)

	hAfter, err := tree.Height()
	require.NoError(t, err)
	require.LessOrEqual(t, hAfter, hBefore)
}
