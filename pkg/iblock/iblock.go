// Package iblock implements index-block operations: the on-disk form of a
// B+ tree node's payload (interleaved pointers and keys) atop the 21-byte
// index-block header, per spec §4.4.
package iblock

import (
	"encoding/binary"
	"errors"

	"btreeidx/pkg/codec"
)

// HeaderSize is tag(1) + block_id(4) + parent_block_id(4) + num_keys(4) +
// pointer_size(4) + key_size(4) = 21 bytes.
const HeaderSize = 21

// PointerSize and KeySize are the reference wire widths from spec §3.
const (
	PointerSize = 8
	KeySize     = codec.KeySize // 14
)

// Kind labels what an index block represents. Root is legacy per spec §3:
// nothing in this module writes it. IsIndexBlock accepts it, but bptree's
// node loader rejects a block tagged root as corrupt; it does not infer
// leaf or non-leaf from the block's contents.
type Kind byte

const (
	KindRoot    Kind = 1
	KindNonLeaf Kind = 2
	KindLeaf    Kind = 3
)

var (
	ErrWrongBlockType  = errors.New("iblock: block is not an index block")
	ErrPayloadTooLarge = errors.New("iblock: pointer/key payload does not fit in block")
	ErrMismatchedArity = errors.New("iblock: len(pointers) must equal len(keys)+1")
)

func IsIndexBlock(buf []byte) bool {
	switch Kind(buf[0]) {
	case KindRoot, KindNonLeaf, KindLeaf:
		return true
	default:
		return false
	}
}

func NodeKind(buf []byte) Kind { return Kind(buf[0]) }

// Init writes a fresh 21-byte header. num_keys starts at 0; pointer_size
// and key_size are fixed to the reference widths.
func Init(buf []byte, kind Kind, blockID, parentID uint32) {
	buf[0] = byte(kind)
	binary.LittleEndian.PutUint32(buf[1:5], blockID)
	binary.LittleEndian.PutUint32(buf[5:9], parentID)
	binary.LittleEndian.PutUint32(buf[9:13], 0)
	binary.LittleEndian.PutUint32(buf[13:17], PointerSize)
	binary.LittleEndian.PutUint32(buf[17:21], KeySize)
}

func BlockID(buf []byte) uint32       { return binary.LittleEndian.Uint32(buf[1:5]) }
func ParentBlockID(buf []byte) uint32 { return binary.LittleEndian.Uint32(buf[5:9]) }
func NumKeys(buf []byte) uint32       { return binary.LittleEndian.Uint32(buf[9:13]) }
func PointerWidth(buf []byte) uint32  { return binary.LittleEndian.Uint32(buf[13:17]) }
func KeyWidth(buf []byte) uint32      { return binary.LittleEndian.Uint32(buf[17:21]) }

// SetParentBlockID rewrites just the parent field, leaving the payload
// untouched.
func SetParentBlockID(buf []byte, parentID uint32) {
	binary.LittleEndian.PutUint32(buf[5:9], parentID)
}

// SetKind rewrites the tag byte without touching anything else.
func SetKind(buf []byte, kind Kind) { buf[0] = byte(kind) }

// Capacity returns n, the maximum number of keys a node of this block size
// can hold: floor((BLOCK_SIZE - header - pointer) / (pointer + key)).
func Capacity(blockSize uint32) int {
	return int((blockSize - HeaderSize - PointerSize) / (PointerSize + KeySize))
}

// WritePayload serializes the interleaved (pointer, key, pointer, ..., key,
// pointer) body: len(ptrs) must be len(keys)+1. Trailing bytes are
// zero-padded and num_keys is updated in the header.
func WritePayload(buf []byte, ptrs []codec.Pointer, keys []codec.Key) error {
	if len(ptrs) != len(keys)+1 {
		return ErrMismatchedArity
	}
	need := HeaderSize + len(ptrs)*PointerSize + len(keys)*KeySize
	if need > len(buf) {
		return ErrPayloadTooLarge
	}
	off := HeaderSize
	for i, k := range keys {
		copy(buf[off:off+PointerSize], codec.EncodePointer(ptrs[i]))
		off += PointerSize
		kb, err := codec.EncodeKey(k)
		if err != nil {
			return err
		}
		copy(buf[off:off+KeySize], kb)
		off += KeySize
	}
	copy(buf[off:off+PointerSize], codec.EncodePointer(ptrs[len(ptrs)-1]))
	off += PointerSize
	for i := off; i < len(buf); i++ {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[9:13], uint32(len(keys)))
	return nil
}

// ReadPayload decodes the interleaved body back into pointer and key
// slices, with len(ptrs) == len(keys)+1.
func ReadPayload(buf []byte) (ptrs []codec.Pointer, keys []codec.Key, err error) {
	if !IsIndexBlock(buf) {
		return nil, nil, ErrWrongBlockType
	}
	numKeys := int(NumKeys(buf))
	ptrs = make([]codec.Pointer, 0, numKeys+1)
	keys = make([]codec.Key, 0, numKeys)
	off := HeaderSize
	for i := 0; i < numKeys; i++ {
		ptrs = append(ptrs, codec.DecodePointer(buf[off:off+PointerSize]))
		off += PointerSize
		keys = append(keys, codec.DecodeKey(buf[off:off+KeySize]))
		off += KeySize
	}
	ptrs = append(ptrs, codec.DecodePointer(buf[off:off+PointerSize]))
	return ptrs, keys, nil
}
