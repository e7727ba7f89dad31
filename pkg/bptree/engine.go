package bptree

import (
	"errors"

	"btreeidx/pkg/blockstore"
	"btreeidx/pkg/codec"
	"btreeidx/pkg/dblock"
	"btreeidx/pkg/iblock"
)

// ErrNotFound is returned when a delete targets a rating with no matching
// key (Search itself never errors on "nothing found" — it just returns an
// empty pointer slice, per spec §4.6).
var ErrNotFound = errors.New("bptree: key not found")

// metaTag marks the reserved bookkeeping block (this module's own
// addition, not part of the spec's data/index block taxonomy) that lets a
// later process reopen an already-populated store and find the current
// root. See DESIGN.md: the spec's block store deliberately does not
// reconstruct its free-list/allocation cursor from disk (no crash
// recovery, §5), so only reopens that never allocate (search/range/stats/
// delete) are safe across process boundaries; this block exists purely to
// recover rootID.
const metaTag = 0xFE

// Engine is the B+ tree engine: the public API named in spec §4.6 operating
// through a blockstore.Store. It is the only thing in this package that
// mutates tree shape; node is a stateless projection it drives.
type Engine struct {
	store            *blockstore.Store
	rootID           uint32
	metaID           uint32
	capacity         int // n
	mergeCount       uint64
	nodeDeletedCount uint64
}

func (e *Engine) minLeafKeys() int    { return ceilDiv(e.capacity+1, 2) }
func (e *Engine) minNonLeafKeys() int { return e.capacity / 2 }

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func writeMeta(store *blockstore.Store, metaID, rootID uint32) error {
	buf, err := store.Read(metaID)
	if err != nil {
		return err
	}
	buf[0] = metaTag
	buf[1] = byte(rootID)
	buf[2] = byte(rootID >> 8)
	buf[3] = byte(rootID >> 16)
	buf[4] = byte(rootID >> 24)
	return store.Write(metaID, buf)
}

func readMeta(store *blockstore.Store, metaID uint32) (rootID uint32, err error) {
	buf, err := store.Read(metaID)
	if err != nil {
		return 0, err
	}
	if buf[0] != metaTag {
		return 0, errors.New("bptree: meta block has unexpected tag")
	}
	rootID = uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16 | uint32(buf[4])<<24
	return rootID, nil
}

func (e *Engine) saveMeta() error {
	return writeMeta(e.store, e.metaID, e.rootID)
}

// IsInitialized reports whether store's block 1 already holds a meta
// block, i.e. whether Open has previously bootstrapped a tree on it. This
// reads the tag byte directly rather than trusting Store's in-memory
// allocation cursor, which resets on every process's Open call and so
// cannot by itself distinguish a fresh disk from a reopened one.
func IsInitialized(store *blockstore.Store) (bool, error) {
	if store.NumBlocks() < 2 {
		return false, nil
	}
	buf, err := store.Read(1)
	if err != nil {
		return false, err
	}
	return buf[0] == metaTag, nil
}

// Open bootstraps a brand new tree (a meta block plus a single empty root
// leaf) when store has never had anything allocated from it, or reopens
// an existing tree by reading the meta block for its root id.
func Open(store *blockstore.Store) (*Engine, error) {
	e := &Engine{
		store:    store,
		capacity: iblock.Capacity(store.BlockSize()),
	}
	initialized, err := IsInitialized(store)
	if err != nil {
		return nil, err
	}
	if !initialized {
		metaID, err := store.Allocate()
		if err != nil {
			return nil, err
		}
		root, err := allocLeaf(store, 0)
		if err != nil {
			return nil, err
		}
		if err := root.flush(); err != nil {
			return nil, err
		}
		e.metaID = metaID
		e.rootID = root.blockID
		if err := e.saveMeta(); err != nil {
			return nil, err
		}
		return e, nil
	}

	// Resuming against an already-populated store: the meta block is
	// always the very first id this package ever allocates.
	e.metaID = 1
	rootID, err := readMeta(store, e.metaID)
	if err != nil {
		return nil, err
	}
	e.rootID = rootID
	return e, nil
}

// Save flushes the current root node, per spec §4.6 — a convenience,
// since every other node is already flushed as part of normal operation.
func (e *Engine) Save() error {
	root, err := loadNode(e.store, e.rootID)
	if err != nil {
		return err
	}
	return root.flush()
}

// ---------- insert ----------

// splitResult is the synthetic "merge me into your parent" node the
// spec's insert algorithm describes: a single promoted key plus the two
// child block ids it separates.
type splitResult struct {
	key          codec.Key
	leftBlockID  uint32
	rightBlockID uint32
}

// Insert adds key -> ptr to the tree, splitting nodes up the path as
// needed and growing the tree's height if the root itself splits.
func (e *Engine) Insert(key codec.Key, ptr codec.Pointer) error {
	root, err := loadNode(e.store, e.rootID)
	if err != nil {
		return err
	}
	promoted, err := e.insertRec(root, key, ptr)
	if err != nil {
		return err
	}
	if promoted == nil {
		return nil
	}
	newRoot, err := allocInternal(e.store, 0)
	if err != nil {
		return err
	}
	newRoot.keys = []codec.Key{promoted.key}
	newRoot.pointers = []codec.Pointer{{BlockID: promoted.leftBlockID}, {BlockID: promoted.rightBlockID}}
	if err := reparent(e.store, promoted.leftBlockID, newRoot.blockID); err != nil {
		return err
	}
	if err := reparent(e.store, promoted.rightBlockID, newRoot.blockID); err != nil {
		return err
	}
	if err := newRoot.flush(); err != nil {
		return err
	}
	e.rootID = newRoot.blockID
	return e.saveMeta()
}

func reparent(store *blockstore.Store, childID, parentID uint32) error {
	child, err := loadNode(store, childID)
	if err != nil {
		return err
	}
	return child.setParent(parentID)
}

func (e *Engine) insertRec(n *node, key codec.Key, ptr codec.Pointer) (*splitResult, error) {
	if n.isLeaf {
		n.insertSortedLeaf(key, ptr)
		if len(n.keys) <= n.capacity {
			return nil, n.flush()
		}
		return e.splitLeaf(n)
	}

	idx := n.findChildIndex(key)
	child, err := loadNode(e.store, n.pointers[idx].BlockID)
	if err != nil {
		return nil, err
	}
	promoted, err := e.insertRec(child, key, ptr)
	if err != nil {
		return nil, err
	}
	if promoted == nil {
		return nil, nil
	}
	n.keys = insertKey(n.keys, idx, promoted.key)
	n.pointers = insertPointer(n.pointers, idx+1, codec.Pointer{BlockID: promoted.rightBlockID})
	if err := reparent(e.store, promoted.rightBlockID, n.blockID); err != nil {
		return nil, err
	}
	if len(n.keys) <= n.capacity {
		return nil, n.flush()
	}
	return e.splitInternal(n)
}

// splitLeaf implements spec §4.6's leaf split: num_left = ceil((n+1)/2),
// the right half (including the new leaf-chain link) becomes a fresh
// leaf, and the promoted separator is the right leaf's first key.
func (e *Engine) splitLeaf(left *node) (*splitResult, error) {
	numLeft := ceilDiv(left.capacity+1, 2)

	right, err := allocLeaf(e.store, left.parentID)
	if err != nil {
		return nil, err
	}
	right.keys = append([]codec.Key(nil), left.keys[numLeft:]...)
	right.pointers = append([]codec.Pointer(nil), left.pointers[numLeft:]...)
	right.nextLeaf = left.nextLeaf

	left.keys = left.keys[:numLeft]
	left.pointers = left.pointers[:numLeft]
	left.nextLeaf = right.blockID

	if err := right.flush(); err != nil {
		return nil, err
	}
	if err := left.flush(); err != nil {
		return nil, err
	}
	return &splitResult{key: right.keys[0], leftBlockID: left.blockID, rightBlockID: right.blockID}, nil
}

// splitInternal implements spec §4.6's internal split: num_left =
// floor(|keys|/2), the key at that position is promoted rather than
// copied into either half.
func (e *Engine) splitInternal(left *node) (*splitResult, error) {
	numLeft := len(left.keys) / 2
	promotedKey := left.keys[numLeft]

	right, err := allocInternal(e.store, left.parentID)
	if err != nil {
		return nil, err
	}
	right.keys = append([]codec.Key(nil), left.keys[numLeft+1:]...)
	right.pointers = append([]codec.Pointer(nil), left.pointers[numLeft+1:]...)

	left.keys = left.keys[:numLeft]
	left.pointers = left.pointers[:numLeft+1]

	for _, p := range right.pointers {
		if err := reparent(e.store, p.BlockID, right.blockID); err != nil {
			return nil, err
		}
	}

	if err := right.flush(); err != nil {
		return nil, err
	}
	if err := left.flush(); err != nil {
		return nil, err
	}
	return &splitResult{key: promotedKey, leftBlockID: left.blockID, rightBlockID: right.blockID}, nil
}

// ---------- delete ----------

// Delete removes every record whose rating equals rating, per spec §4.6:
// delete(rating) repeatedly finds the first remaining key at that rating
// and deletes it, returning how many rows were removed.
func (e *Engine) Delete(rating float64) (int, error) {
	r, err := codec.RatingFromFloat64(rating)
	if err != nil {
		return 0, err
	}
	lo, hi := codec.RatingBounds(r)
	ptrs, err := e.rangeScan(lo, hi)
	if err != nil {
		return 0, err
	}
	if len(ptrs) == 0 {
		return 0, ErrNotFound
	}
	count := 0
	for {
		key, found, err := e.firstKeyInRange(lo, hi)
		if err != nil {
			return count, err
		}
		if !found {
			break
		}
		if err := e.deleteKey(key); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// firstKeyInRange descends to the leaf that would contain lo, then follows
// the leaf chain (mirroring rangeScan) until it finds the first key in
// [lo,hi]. The descent alone is not enough: lo = (rating, "") sorts before
// every real key at that rating, so the leaf the descent lands on can be
// the leaf preceding the one that actually holds the first match whenever
// that match is the first key of a non-leftmost leaf.
func (e *Engine) firstKeyInRange(lo, hi codec.Key) (codec.Key, bool, error) {
	cur, err := loadNode(e.store, e.rootID)
	if err != nil {
		return codec.Key{}, false, err
	}
	for !cur.isLeaf {
		idx := cur.findChildIndex(lo)
		cur, err = loadNode(e.store, cur.pointers[idx].BlockID)
		if err != nil {
			return codec.Key{}, false, err
		}
	}
	for {
		for _, k := range cur.keys {
			if k.Less(lo) {
				continue
			}
			if hi.Less(k) {
				return codec.Key{}, false, nil
			}
			return k, true, nil
		}
		if cur.nextLeaf == 0 {
			return codec.Key{}, false, nil
		}
		cur, err = loadNode(e.store, cur.nextLeaf)
		if err != nil {
			return codec.Key{}, false, err
		}
	}
}

// deleteKey removes a single composite key from the tree: descend to the
// leaf while recording the path taken, remove the key and its data
// record, then rebalance from the leaf upward per spec §4.6/§9.
func (e *Engine) deleteKey(key codec.Key) error {
	var path []*node
	var idxs []int
	cur, err := loadNode(e.store, e.rootID)
	if err != nil {
		return err
	}
	for !cur.isLeaf {
		path = append(path, cur)
		i := cur.findChildIndex(key)
		idxs = append(idxs, i)
		cur, err = loadNode(e.store, cur.pointers[i].BlockID)
		if err != nil {
			return err
		}
	}
	leaf := cur
	pos := leaf.findKeyIndex(key)
	if pos < 0 {
		return ErrNotFound
	}
	valPtr := leaf.pointers[pos]
	leaf.keys = removeKey(leaf.keys, pos)
	leaf.pointers = removePointer(leaf.pointers, pos)
	if err := e.deleteRecordAt(valPtr); err != nil {
		return err
	}
	if pos == 0 && len(leaf.keys) > 0 {
		// The leaf's minimum changed: refresh the nearest ancestor
		// separator that bounds this leaf's subtree from the left.
		for j := len(path) - 1; j >= 0; j-- {
			if idxs[j] > 0 {
				path[j].keys[idxs[j]-1] = leaf.keys[0]
				if err := path[j].flush(); err != nil {
					return err
				}
				break
			}
		}
	}

	if len(path) == 0 {
		// The leaf is the root: any key count is acceptable.
		return leaf.flush()
	}
	if len(leaf.keys) >= e.minLeafKeys() {
		return leaf.flush()
	}
	return e.repairUnderflow(leaf, path, idxs, true)
}

func (e *Engine) deleteRecordAt(ptr codec.Pointer) error {
	buf, err := e.store.Read(ptr.BlockID)
	if err != nil {
		return err
	}
	if err := dblock.DeleteRecord(buf, ptr.Offset); err != nil {
		return err
	}
	return e.store.Write(ptr.BlockID, buf)
}

// repairUnderflow handles a node that has dropped below its minimum key
// count: try borrowing a key from the left sibling, then the right
// sibling, then merge with whichever sibling exists, per spec §4.6/§9.
// path/idxs describe the descent from the root down to n's parent.
func (e *Engine) repairUnderflow(n *node, path []*node, idxs []int, isLeafLevel bool) error {
	parent := path[len(path)-1]
	pIdx := idxs[len(idxs)-1]
	minKeys := e.minLeafKeys()
	if !isLeafLevel {
		minKeys = e.minNonLeafKeys()
	}

	if pIdx > 0 {
		left, err := loadNode(e.store, parent.pointers[pIdx-1].BlockID)
		if err != nil {
			return err
		}
		if len(left.keys) > minKeys {
			if isLeafLevel {
				e.borrowLeafFromLeft(left, n, parent, pIdx)
			} else {
				if err := e.borrowInternalFromLeft(left, n, parent, pIdx); err != nil {
					return err
				}
			}
			if err := left.flush(); err != nil {
				return err
			}
			if err := n.flush(); err != nil {
				return err
			}
			return parent.flush()
		}
	}

	if pIdx < len(parent.pointers)-1 {
		right, err := loadNode(e.store, parent.pointers[pIdx+1].BlockID)
		if err != nil {
			return err
		}
		if len(right.keys) > minKeys {
			if isLeafLevel {
				e.borrowLeafFromRight(n, right, parent, pIdx)
			} else {
				if err := e.borrowInternalFromRight(n, right, parent, pIdx); err != nil {
					return err
				}
			}
			if err := right.flush(); err != nil {
				return err
			}
			if err := n.flush(); err != nil {
				return err
			}
			return parent.flush()
		}
	}

	if pIdx > 0 {
		left, err := loadNode(e.store, parent.pointers[pIdx-1].BlockID)
		if err != nil {
			return err
		}
		if isLeafLevel {
			e.mergeLeaves(left, n)
		} else if err := e.mergeInternal(left, n, parent.keys[pIdx-1]); err != nil {
			return err
		}
		parent.pointers = removePointer(parent.pointers, pIdx)
		parent.keys = removeKey(parent.keys, pIdx-1)
		if err := e.store.Deallocate(n.blockID); err != nil {
			return err
		}
		e.mergeCount++
		e.nodeDeletedCount++
		if err := left.flush(); err != nil {
			return err
		}
		return e.handleParentAfterMerge(parent, path[:len(path)-1], idxs[:len(idxs)-1])
	}

	right, err := loadNode(e.store, parent.pointers[pIdx+1].BlockID)
	if err != nil {
		return err
	}
	if isLeafLevel {
		e.mergeLeaves(n, right)
	} else if err := e.mergeInternal(n, right, parent.keys[pIdx]); err != nil {
		return err
	}
	parent.pointers = removePointer(parent.pointers, pIdx+1)
	parent.keys = removeKey(parent.keys, pIdx)
	if err := e.store.Deallocate(right.blockID); err != nil {
		return err
	}
	e.mergeCount++
	e.nodeDeletedCount++
	if err := n.flush(); err != nil {
		return err
	}
	return e.handleParentAfterMerge(parent, path[:len(path)-1], idxs[:len(idxs)-1])
}

// handleParentAfterMerge is invoked once a child has been folded away:
// if parent is the root and now has zero keys, collapse the tree by one
// level; otherwise refresh the grandparent's separator for parent's
// subtree and recurse the same borrow/merge cascade on parent if it has
// itself underflowed.
func (e *Engine) handleParentAfterMerge(parent *node, path []*node, idxs []int) error {
	if len(path) == 0 {
		if len(parent.keys) == 0 {
			childID := parent.pointers[0].BlockID
			child, err := loadNode(e.store, childID)
			if err != nil {
				return err
			}
			if err := child.setParent(0); err != nil {
				return err
			}
			if err := e.store.Deallocate(parent.blockID); err != nil {
				return err
			}
			e.nodeDeletedCount++
			e.rootID = childID
			return e.saveMeta()
		}
		return parent.flush()
	}

	grandparent := path[len(path)-1]
	gpIdx := idxs[len(idxs)-1]
	if gpIdx > 0 {
		mk, err := minKeyInSubtree(e.store, parent.blockID)
		if err != nil {
			return err
		}
		grandparent.keys[gpIdx-1] = mk
		if err := grandparent.flush(); err != nil {
			return err
		}
	}

	if len(parent.keys) >= e.minNonLeafKeys() {
		return parent.flush()
	}
	return e.repairUnderflow(parent, path, idxs, false)
}

// borrowLeafFromLeft redistributes keys between two adjacent leaves so
// both satisfy the minimum occupancy:
// num_left = ceil((left.keys+right.keys)/2).
func (e *Engine) borrowLeafFromLeft(left, n, parent *node, pIdx int) {
	combinedKeys := append(append([]codec.Key(nil), left.keys...), n.keys...)
	combinedPtrs := append(append([]codec.Pointer(nil), left.pointers...), n.pointers...)
	numLeft := ceilDiv(len(left.keys)+len(n.keys), 2)
	left.keys = combinedKeys[:numLeft]
	left.pointers = combinedPtrs[:numLeft]
	n.keys = combinedKeys[numLeft:]
	n.pointers = combinedPtrs[numLeft:]
	parent.keys[pIdx-1] = n.keys[0]
}

func (e *Engine) borrowLeafFromRight(n, right, parent *node, pIdx int) {
	combinedKeys := append(append([]codec.Key(nil), n.keys...), right.keys...)
	combinedPtrs := append(append([]codec.Pointer(nil), n.pointers...), right.pointers...)
	numLeft := ceilDiv(len(n.keys)+len(right.keys), 2)
	n.keys = combinedKeys[:numLeft]
	n.pointers = combinedPtrs[:numLeft]
	right.keys = combinedKeys[numLeft:]
	right.pointers = combinedPtrs[numLeft:]
	parent.keys[pIdx] = right.keys[0]
}

// borrowInternalFromLeft and borrowInternalFromRight rotate a single
// child through the parent separator, the standard internal-node B+ tree
// rebalance: the spec gives an explicit redistribution formula only for
// leaves (§4.6); this is the textbook completion for internal nodes.
func (e *Engine) borrowInternalFromLeft(left, n, parent *node, pIdx int) error {
	movedChild := left.pointers[len(left.pointers)-1]
	n.keys = insertKey(n.keys, 0, parent.keys[pIdx-1])
	n.pointers = insertPointer(n.pointers, 0, movedChild)
	parent.keys[pIdx-1] = left.keys[len(left.keys)-1]
	left.keys = left.keys[:len(left.keys)-1]
	left.pointers = left.pointers[:len(left.pointers)-1]
	return reparent(e.store, movedChild.BlockID, n.blockID)
}

func (e *Engine) borrowInternalFromRight(n, right, parent *node, pIdx int) error {
	movedChild := right.pointers[0]
	n.keys = append(n.keys, parent.keys[pIdx])
	n.pointers = append(n.pointers, movedChild)
	parent.keys[pIdx] = right.keys[0]
	right.keys = right.keys[1:]
	right.pointers = right.pointers[1:]
	return reparent(e.store, movedChild.BlockID, n.blockID)
}

// mergeLeaves folds right's entries into left and carries over the
// leaf-chain pointer, per spec §4.6.
func (e *Engine) mergeLeaves(left, right *node) {
	left.keys = append(left.keys, right.keys...)
	left.pointers = append(left.pointers, right.pointers...)
	left.nextLeaf = right.nextLeaf
}

// mergeInternal folds right into left, pulling the parent's separator key
// down between them as the classic B+ tree internal merge requires.
func (e *Engine) mergeInternal(left, right *node, sepKey codec.Key) error {
	left.keys = append(left.keys, sepKey)
	left.keys = append(left.keys, right.keys...)
	left.pointers = append(left.pointers, right.pointers...)
	for _, p := range right.pointers {
		if err := reparent(e.store, p.BlockID, left.blockID); err != nil {
			return err
		}
	}
	return nil
}

// ---------- search / range scan ----------

// Search returns every pointer whose key has the given rating, per spec
// §4.6: lifted internally to _range((rating,""), (rating,maxID)).
func (e *Engine) Search(rating float64) ([]codec.Pointer, error) {
	r, err := codec.RatingFromFloat64(rating)
	if err != nil {
		return nil, err
	}
	lo, hi := codec.RatingBounds(r)
	return e.rangeScan(lo, hi)
}

// SearchRange returns every pointer with low <= rating <= high.
func (e *Engine) SearchRange(low, high float64) ([]codec.Pointer, error) {
	loR, err := codec.RatingFromFloat64(low)
	if err != nil {
		return nil, err
	}
	hiR, err := codec.RatingFromFloat64(high)
	if err != nil {
		return nil, err
	}
	lo, hi := codec.Bounds(loR, hiR)
	return e.rangeScan(lo, hi)
}

// AllPointers returns every inserted pointer in ascending key order, used
// by tests to check the "search_range(-inf,+inf) returns the inserted
// multiset" invariant from spec §8.
func (e *Engine) AllPointers() ([]codec.Pointer, error) {
	return e.rangeScan(codec.MinKey, codec.MaxKey)
}

func (e *Engine) rangeScan(lo, hi codec.Key) ([]codec.Pointer, error) {
	cur, err := loadNode(e.store, e.rootID)
	if err != nil {
		return nil, err
	}
	for !cur.isLeaf {
		idx := cur.findChildIndex(lo)
		cur, err = loadNode(e.store, cur.pointers[idx].BlockID)
		if err != nil {
			return nil, err
		}
	}

	var out []codec.Pointer
	for {
		for i, k := range cur.keys {
			if k.Less(lo) {
				continue
			}
			if hi.Less(k) {
				return out, nil
			}
			out = append(out, cur.pointers[i])
		}
		if cur.nextLeaf == 0 {
			return out, nil
		}
		cur, err = loadNode(e.store, cur.nextLeaf)
		if err != nil {
			return nil, err
		}
	}
}

// ResolvePointer reads the record a pointer refers to, via the data-block
// operations (spec §4.3) — the tree never interprets record bytes itself.
func (e *Engine) ResolvePointer(ptr codec.Pointer) (codec.Record, error) {
	buf, err := e.store.Read(ptr.BlockID)
	if err != nil {
		return codec.Record{}, err
	}
	raw, err := dblock.ReadRecord(buf, ptr.Offset)
	if err != nil {
		return codec.Record{}, err
	}
	return codec.DecodeRecord(raw), nil
}

// ---------- introspection ----------

// Height walks the leftmost spine of the tree, counting levels from the
// root (1) down to and including the leaf level.
func (e *Engine) Height() (int, error) {
	cur, err := loadNode(e.store, e.rootID)
	if err != nil {
		return 0, err
	}
	h := 1
	for !cur.isLeaf {
		h++
		cur, err = loadNode(e.store, cur.pointers[0].BlockID)
		if err != nil {
			return 0, err
		}
	}
	return h, nil
}

// NumNodes counts every index block (leaves and internal nodes, including
// the root) reachable from the root.
func (e *Engine) NumNodes() (int, error) {
	count := 0
	var visit func(id uint32) error
	visit = func(id uint32) error {
		n, err := loadNode(e.store, id)
		if err != nil {
			return err
		}
		count++
		if !n.isLeaf {
			for _, p := range n.pointers {
				if err := visit(p.BlockID); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(e.rootID); err != nil {
		return 0, err
	}
	return count, nil
}

// NumLeaves walks the leaf chain from the leftmost leaf, counting every
// leaf exactly once — this is the "leaf-chain reachability" property from
// spec §8, turned into a usable statistic.
func (e *Engine) NumLeaves() (int, error) {
	cur, err := loadNode(e.store, e.rootID)
	if err != nil {
		return 0, err
	}
	for !cur.isLeaf {
		cur, err = loadNode(e.store, cur.pointers[0].BlockID)
		if err != nil {
			return 0, err
		}
	}
	count := 0
	for {
		count++
		if cur.nextLeaf == 0 {
			return count, nil
		}
		cur, err = loadNode(e.store, cur.nextLeaf)
		if err != nil {
			return 0, err
		}
	}
}

// Stats is a point-in-time snapshot used by the CLI's stats subcommand and
// by invariant tests after bulk insert/delete.
type Stats struct {
	Height        int
	NumNodes      int
	NumLeaves     int
	NumBlocksUsed uint32
	NumBlocksFree uint32
	Merges        uint64
	NodesDeleted  uint64
}

func (e *Engine) Stats() (Stats, error) {
	h, err := e.Height()
	if err != nil {
		return Stats{}, err
	}
	nn, err := e.NumNodes()
	if err != nil {
		return Stats{}, err
	}
	nl, err := e.NumLeaves()
	if err != nil {
		return Stats{}, err
	}
	used := e.store.NumBlocksUsed()
	return Stats{
		Height:        h,
		NumNodes:      nn,
		NumLeaves:     nl,
		NumBlocksUsed: used,
		NumBlocksFree: e.store.NumBlocks() - used,
		Merges:        e.mergeCount,
		NodesDeleted:  e.nodeDeletedCount,
	}, nil
}
