// Package bptree implements the B+ tree engine: node projection, the
// insert/split cascade, the delete/borrow/merge cascade, and point/range
// search across the leaf chain, all operating through a blockstore.Store.
package bptree

import (
	"errors"

	"btreeidx/pkg/blockstore"
	"btreeidx/pkg/codec"
	"btreeidx/pkg/iblock"
)

// ErrCorruption marks an index block whose tag is neither leaf nor
// non-leaf where one was expected — a fatal codec-misuse condition per
// spec §7.3.
var ErrCorruption = errors.New("bptree: corrupt index node")

// node is the transient in-memory projection of a single index block,
// per spec §4.5. It is built from a block on load and discarded after
// flush; nothing about tree shape survives between operations except what
// is written back to the block store.
//
// The root tag (spec §3, byte value 1) is legacy: this implementation
// never writes it. Every block, including whichever one currently serves
// as the tree root, is tagged as a true leaf or non-leaf, which sidesteps
// the "root tag is legacy, infer leaf-ness structurally" ambiguity the
// spec flags entirely — see DESIGN.md.
type node struct {
	store    *blockstore.Store
	blockID  uint32
	parentID uint32 // 0 = none (this node is the root)
	isLeaf   bool
	keys     []codec.Key
	// pointers holds len(keys) value pointers for a leaf, or len(keys)+1
	// child pointers for a non-leaf. The leaf-chain link is tracked
	// separately in nextLeaf, not smuggled into this slice, per the
	// spec's §9 design note.
	pointers []codec.Pointer
	nextLeaf uint32 // leaf only; 0 = no next leaf
	capacity int    // n, this tree's per-node key capacity
}

func loadNode(store *blockstore.Store, blockID uint32) (*node, error) {
	buf, err := store.Read(blockID)
	if err != nil {
		return nil, err
	}
	if !iblock.IsIndexBlock(buf) {
		return nil, ErrCorruption
	}
	kind := iblock.NodeKind(buf)
	if kind != iblock.KindLeaf && kind != iblock.KindNonLeaf {
		return nil, ErrCorruption
	}
	ptrs, keys, err := iblock.ReadPayload(buf)
	if err != nil {
		return nil, err
	}
	n := &node{
		store:    store,
		blockID:  blockID,
		parentID: iblock.ParentBlockID(buf),
		isLeaf:   kind == iblock.KindLeaf,
		capacity: iblock.Capacity(store.BlockSize()),
	}
	if n.isLeaf {
		n.nextLeaf = ptrs[len(ptrs)-1].BlockID
		n.pointers = ptrs[:len(ptrs)-1]
	} else {
		n.pointers = ptrs
	}
	n.keys = keys
	return n, nil
}

func allocLeaf(store *blockstore.Store, parentID uint32) (*node, error) {
	id, err := store.Allocate()
	if err != nil {
		return nil, err
	}
	n := &node{
		store:    store,
		blockID:  id,
		parentID: parentID,
		isLeaf:   true,
		capacity: iblock.Capacity(store.BlockSize()),
	}
	return n, nil
}

func allocInternal(store *blockstore.Store, parentID uint32) (*node, error) {
	id, err := store.Allocate()
	if err != nil {
		return nil, err
	}
	n := &node{
		store:    store,
		blockID:  id,
		parentID: parentID,
		isLeaf:   false,
		capacity: iblock.Capacity(store.BlockSize()),
	}
	return n, nil
}

// flush re-serializes the node's current fields and writes the block
// back, per spec §4.5.
func (n *node) flush() error {
	buf := make([]byte, n.store.BlockSize())
	kind := iblock.KindNonLeaf
	if n.isLeaf {
		kind = iblock.KindLeaf
	}
	iblock.Init(buf, kind, n.blockID, n.parentID)

	ptrs := n.pointers
	if n.isLeaf {
		ptrs = append(append([]codec.Pointer(nil), n.pointers...), codec.Pointer{BlockID: n.nextLeaf})
	}
	if err := iblock.WritePayload(buf, ptrs, n.keys); err != nil {
		return err
	}
	return n.store.Write(n.blockID, buf)
}

func (n *node) setParent(parentID uint32) error {
	n.parentID = parentID
	return n.flush()
}

// minKeyInSubtree returns the smallest key stored anywhere under blockID,
// descending through leftmost children until it reaches a leaf.
func minKeyInSubtree(store *blockstore.Store, blockID uint32) (codec.Key, error) {
	n, err := loadNode(store, blockID)
	if err != nil {
		return codec.Key{}, err
	}
	for !n.isLeaf {
		n, err = loadNode(store, n.pointers[0].BlockID)
		if err != nil {
			return codec.Key{}, err
		}
	}
	if len(n.keys) == 0 {
		return codec.Key{}, errors.New("bptree: empty leaf has no minimum key")
	}
	return n.keys[0], nil
}

// findChildIndex returns the index i of the child to descend into for
// key: the smallest i such that key < keys[i], or len(keys) if key is
// greater than or equal to every separator.
func (n *node) findChildIndex(key codec.Key) int {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if key.Less(n.keys[mid]) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// findKeyIndex returns the index of key in a leaf's sorted key slice, or
// -1 if absent.
func (n *node) findKeyIndex(key codec.Key) int {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if n.keys[mid].Less(key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(n.keys) && n.keys[lo].Equal(key) {
		return lo
	}
	return -1
}

// insertSortedLeaf finds the sorted position for key and inserts it
// together with its value pointer at that position.
func (n *node) insertSortedLeaf(key codec.Key, ptr codec.Pointer) {
	i := n.findChildIndex(key) // for a leaf this doubles as "smallest i with key < keys[i]"
	n.keys = insertKey(n.keys, i, key)
	n.pointers = insertPointer(n.pointers, i, ptr)
}

func insertKey(a []codec.Key, i int, v codec.Key) []codec.Key {
	a = append(a, codec.Key{})
	copy(a[i+1:], a[i:len(a)-1])
	a[i] = v
	return a
}

func insertPointer(a []codec.Pointer, i int, v codec.Pointer) []codec.Pointer {
	a = append(a, codec.Pointer{})
	copy(a[i+1:], a[i:len(a)-1])
	a[i] = v
	return a
}

func removeKey(a []codec.Key, i int) []codec.Key {
	return append(a[:i], a[i+1:]...)
}

func removePointer(a []codec.Pointer, i int) []codec.Pointer {
	return append(a[:i], a[i+1:]...)
}
