// Package invariants implements the property checks from spec §8 as
// reusable test helpers: separator correctness, leaf-chain ordering,
// key-count bounds, pointer arity, and parent back-pointer correctness.
// It walks a tree through the same block store API the engine itself
// uses, never reaching into bptree internals.
package invariants

import (
	"fmt"

	"btreeidx/pkg/blockstore"
	"btreeidx/pkg/codec"
	"btreeidx/pkg/iblock"
)

// Checker walks an index-block tree rooted at rootID and reports the
// first violation of any property from spec §8, or nil if none is found.
type Checker struct {
	store    *blockstore.Store
	capacity int
}

func NewChecker(store *blockstore.Store) *Checker {
	return &Checker{store: store, capacity: iblock.Capacity(store.BlockSize())}
}

func (c *Checker) minLeafKeys() int    { return (c.capacity + 2) / 2 }
func (c *Checker) minNonLeafKeys() int { return c.capacity / 2 }

type blockView struct {
	blockID  uint32
	parentID uint32
	isLeaf   bool
	keys     []codec.Key
	pointers []codec.Pointer // value pointers for leaves (chain pointer stripped), child pointers for non-leaves
	nextLeaf uint32
}

func (c *Checker) load(id uint32) (blockView, error) {
	buf, err := c.store.Read(id)
	if err != nil {
		return blockView{}, err
	}
	if !iblock.IsIndexBlock(buf) {
		return blockView{}, fmt.Errorf("invariants: block %d is not an index block", id)
	}
	kind := iblock.NodeKind(buf)
	ptrs, keys, err := iblock.ReadPayload(buf)
	if err != nil {
		return blockView{}, err
	}
	v := blockView{
		blockID:  id,
		parentID: iblock.ParentBlockID(buf),
		isLeaf:   kind == iblock.KindLeaf,
		keys:     keys,
	}
	if v.isLeaf {
		v.nextLeaf = ptrs[len(ptrs)-1].BlockID
		v.pointers = ptrs[:len(ptrs)-1]
	} else {
		v.pointers = ptrs
	}
	return v, nil
}

// Check walks every reachable node from rootID and validates every
// property in spec §8 except the two that need the whole-tree
// leaf-chain view (checked separately by CheckLeafChain).
func (c *Checker) Check(rootID uint32) error {
	return c.checkNode(rootID, 0, true)
}

func (c *Checker) checkNode(id uint32, parentID uint32, isRoot bool) error {
	v, err := c.load(id)
	if err != nil {
		return err
	}
	if v.parentID != parentID {
		return fmt.Errorf("invariants: block %d has parent_block_id=%d, expected %d", id, v.parentID, parentID)
	}
	numPtrs := len(v.pointers)
	if v.isLeaf {
		numPtrs++ // the leaf-chain pointer stripped by load
	}
	if numPtrs != len(v.keys)+1 {
		return fmt.Errorf("invariants: block %d has %d pointers and %d keys, want pointers=keys+1", id, numPtrs, len(v.keys))
	}
	if !isRoot {
		minKeys := c.minNonLeafKeys()
		if v.isLeaf {
			minKeys = c.minLeafKeys()
		}
		if len(v.keys) < minKeys || len(v.keys) > c.capacity {
			return fmt.Errorf("invariants: block %d has %d keys, want %d..%d", id, len(v.keys), minKeys, c.capacity)
		}
	}
	for i := 1; i < len(v.keys); i++ {
		if !v.keys[i-1].Less(v.keys[i]) {
			return fmt.Errorf("invariants: block %d keys not strictly increasing at index %d", id, i)
		}
	}
	if !v.isLeaf {
		for i := 1; i < len(v.pointers); i++ {
			mk, err := c.minKeyInSubtree(v.pointers[i].BlockID)
			if err != nil {
				return err
			}
			if !mk.Equal(v.keys[i-1]) {
				return fmt.Errorf("invariants: block %d keys[%d]=%v but min(subtree(pointers[%d]))=%v", id, i-1, v.keys[i-1], i, mk)
			}
		}
		for _, p := range v.pointers {
			if err := c.checkNode(p.BlockID, id, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Checker) minKeyInSubtree(id uint32) (codec.Key, error) {
	v, err := c.load(id)
	if err != nil {
		return codec.Key{}, err
	}
	for !v.isLeaf {
		v, err = c.load(v.pointers[0].BlockID)
		if err != nil {
			return codec.Key{}, err
		}
	}
	if len(v.keys) == 0 {
		return codec.Key{}, fmt.Errorf("invariants: empty leaf %d has no minimum key", v.blockID)
	}
	return v.keys[0], nil
}

// CheckLeafChain walks from the leftmost leaf reachable from rootID and
// validates strictly increasing keys across leaf boundaries plus
// reachability: every leaf is visited exactly once (no cycle, no
// unreachable leaf left dangling off the chain).
func (c *Checker) CheckLeafChain(rootID uint32) (leavesVisited int, totalKeys int, err error) {
	v, err := c.load(rootID)
	if err != nil {
		return 0, 0, err
	}
	for !v.isLeaf {
		v, err = c.load(v.pointers[0].BlockID)
		if err != nil {
			return 0, 0, err
		}
	}

	seen := make(map[uint32]bool)
	var lastKey *codec.Key
	for {
		if seen[v.blockID] {
			return leavesVisited, totalKeys, fmt.Errorf("invariants: leaf chain cycles back to block %d", v.blockID)
		}
		seen[v.blockID] = true
		leavesVisited++
		totalKeys += len(v.keys)
		for _, k := range v.keys {
			if lastKey != nil && !lastKey.Less(k) {
				return leavesVisited, totalKeys, fmt.Errorf("invariants: leaf chain not strictly increasing at key %v", k)
			}
			kk := k
			lastKey = &kk
		}
		if v.nextLeaf == 0 {
			return leavesVisited, totalKeys, nil
		}
		v, err = c.load(v.nextLeaf)
		if err != nil {
			return leavesVisited, totalKeys, err
		}
	}
}
