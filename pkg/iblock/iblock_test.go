package iblock

import (
	"testing"

	"btreeidx/pkg/codec"
	"github.com/stretchr/testify/require"
)

const blockSize = 500

func TestInitHeader(t *testing.T) {
	buf := make([]byte, blockSize)
	Init(buf, KindLeaf, 3, 1)
	require.True(t, IsIndexBlock(buf))
	require.Equal(t, KindLeaf, NodeKind(buf))
	require.Equal(t, uint32(3), BlockID(buf))
	require.Equal(t, uint32(1), ParentBlockID(buf))
	require.Equal(t, uint32(0), NumKeys(buf))
	require.Equal(t, uint32(PointerSize), PointerWidth(buf))
	require.Equal(t, uint32(KeySize), KeyWidth(buf))
}

func TestWriteReadPayloadRoundTrip(t *testing.T) {
	buf := make([]byte, blockSize)
	Init(buf, KindLeaf, 3, 1)

	keys := []codec.Key{
		{Rating: codec.Rating{IntPart: 1}, ID: "a"},
		{Rating: codec.Rating{IntPart: 2}, ID: "b"},
	}
	ptrs := []codec.Pointer{
		{BlockID: 10, Offset: 17},
		{BlockID: 10, Offset: 35},
		{BlockID: 99, Offset: 0}, // leaf chain pointer slot
	}
	require.NoError(t, WritePayload(buf, ptrs, keys))
	require.Equal(t, uint32(2), NumKeys(buf))

	gotPtrs, gotKeys, err := ReadPayload(buf)
	require.NoError(t, err)
	require.Equal(t, ptrs, gotPtrs)
	require.Equal(t, keys, gotKeys)
}

func TestWritePayloadArityMismatch(t *testing.T) {
	buf := make([]byte, blockSize)
	Init(buf, KindLeaf, 1, 0)
	err := WritePayload(buf, []codec.Pointer{{}}, []codec.Key{{}})
	require.ErrorIs(t, err, ErrMismatchedArity)
}

func TestCapacityMatchesSpecReference(t *testing.T) {
	// (500 - 21 - 8) / (8 + 14) = 471 / 22 = 21
	require.Equal(t, 21, Capacity(500))
}

func TestPayloadTooLarge(t *testing.T) {
	buf := make([]byte, blockSize)
	Init(buf, KindLeaf, 1, 0)
	n := Capacity(uint32(blockSize))
	keys := make([]codec.Key, n+5)
	ptrs := make([]codec.Pointer, n+6)
	for i := range keys {
		keys[i] = codec.Key{ID: "x"}
	}
	err := WritePayload(buf, ptrs, keys)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}
