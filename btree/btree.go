package btree

import (
	"fmt"
	"sync"
	"time"

	"github.com/mdedb/mde/mdeerrors"
	"github.com/mdedb/mde/metrics"
	"github.com/mdedb/mde/value"
)

// MinOrder is the smallest branching factor the tree accepts; an order of
// 3 is the smallest that can meaningfully split.
const MinOrder = 3

// Tree is the order-preserving B+ tree index: typed keys to opaque
// value blobs. All public operations acquire the tree's single lock:
// Insert and Delete take it exclusively, while Find, IterAll, Range and
// Len take it shared. This implementation does not attempt crabbing.
type Tree struct {
	mu      sync.RWMutex
	order   int
	keyType value.Variant
	cmp     comparator
	root    *node
	count   int
}

// New constructs an empty tree with the given branching order and
// declared key variant. Every key passed to a public operation must
// match keyType or the operation fails with mdeerrors.ErrKeyMismatchType.
func New(order int, keyType value.Variant) (*Tree, error) {
	if order < MinOrder {
		return nil, fmt.Errorf("mde: btree order %d below minimum %d: %w", order, MinOrder, mdeerrors.ErrInvalidArgument)
	}
	return &Tree{
		order:   order,
		keyType: keyType,
		cmp:     value.Compare,
		root:    newLeaf(),
	}, nil
}

// checkKey rejects keys whose variant does not match the tree's declared
// key type.
func (t *Tree) checkKey(k value.Value) error {
	if k.Variant != t.keyType {
		return fmt.Errorf("mde: key variant %v, tree wants %v: %w", k.Variant, t.keyType, mdeerrors.ErrKeyMismatchType)
	}
	return nil
}

// Find returns the value stored for k, or (nil, false) on a miss.
func (t *Tree) Find(k value.Value) ([]byte, bool, error) {
	if err := t.checkKey(k); err != nil {
		return nil, false, err
	}
	defer observeTreeOp("find", time.Now())
	t.mu.RLock()
	defer t.mu.RUnlock()

	leaf, err := t.descendToLeaf(k)
	if err != nil {
		return nil, false, err
	}
	idx, ok, err := leaf.searchLeaf(k, t.cmp)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return leaf.values[idx], true, nil
}

func (t *Tree) descendToLeaf(k value.Value) (*node, error) {
	n := t.root
	for !n.leaf {
		idx, err := n.childIndex(k, t.cmp)
		if err != nil {
			return nil, err
		}
		n = n.children[idx]
	}
	return n, nil
}

// Insert stores v under k, overwriting any existing value for k without
// growing the tree's key count.
func (t *Tree) Insert(k value.Value, v []byte) error {
	if err := t.checkKey(k); err != nil {
		return err
	}
	defer observeTreeOp("insert", time.Now())
	t.mu.Lock()
	defer t.mu.Unlock()

	promoted, right, _, err := t.insertInto(t.root, k, v)
	if err != nil {
		return err
	}
	if right != nil {
		t.root = newInternal([]value.Value{promoted}, []*node{t.root, right})
	}
	return nil
}

// insertInto inserts (k, v) into the subtree rooted at n. If n splits, it
// returns the promoted separator key and the new right sibling; grew
// reports whether the tree's total key count increased (false on an
// upsert that overwrote an existing leaf value).
func (t *Tree) insertInto(n *node, k value.Value, v []byte) (value.Value, *node, bool, error) {
	if n.leaf {
		idx, exists, err := n.searchLeaf(k, t.cmp)
		if err != nil {
			return value.Value{}, nil, false, err
		}
		if exists {
			n.values[idx] = v
			return value.Value{}, nil, false, nil
		}
		n.keys = insertValueAt(n.keys, idx, k)
		n.values = insertBytesAt(n.values, idx, v)
		t.count++

		if len(n.keys) < t.order {
			return value.Value{}, nil, true, nil
		}
		promoted, right := t.splitLeaf(n)
		return promoted, right, true, nil
	}

	idx, err := n.childIndex(k, t.cmp)
	if err != nil {
		return value.Value{}, nil, false, err
	}
	promoted, right, grew, err := t.insertInto(n.children[idx], k, v)
	if err != nil {
		return value.Value{}, nil, false, err
	}
	if right == nil {
		return value.Value{}, nil, grew, nil
	}

	n.keys = insertValueAt(n.keys, idx, promoted)
	n.children = insertNodeAt(n.children, idx+1, right)

	if len(n.keys) < t.order {
		return value.Value{}, nil, grew, nil
	}
	promotedUp, rightUp := t.splitInternal(n)
	return promotedUp, rightUp, grew, nil
}

// splitLeaf moves the right half of an overfull leaf (indices
// floor(n/2)..) to a fresh leaf, stitches sibling links, and returns the
// new leaf's first key as the separator to promote.
func (t *Tree) splitLeaf(n *node) (value.Value, *node) {
	mid := len(n.keys) / 2

	right := newLeaf()
	right.keys = append([]value.Value{}, n.keys[mid:]...)
	right.values = append([][]byte{}, n.values[mid:]...)
	n.keys = n.keys[:mid]
	n.values = n.values[:mid]

	right.next = n.next
	right.prev = n
	if n.next != nil {
		n.next.prev = right
	}
	n.next = right

	return right.keys[0], right
}

// splitInternal splits an overfull internal node: keys left of mid stay,
// the key at mid is promoted and removed, keys right of mid move to a
// fresh internal node along with their children.
func (t *Tree) splitInternal(n *node) (value.Value, *node) {
	mid := len(n.keys) / 2
	promoted := n.keys[mid]

	right := newInternal(
		append([]value.Value{}, n.keys[mid+1:]...),
		append([]*node{}, n.children[mid+1:]...),
	)
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	return promoted, right
}

// Delete removes k if present, reporting whether it was found. Rebalancing
// is intentionally not performed: the tree may grow sparse, but ordering
// and lookup correctness are unaffected.
func (t *Tree) Delete(k value.Value) (bool, error) {
	if err := t.checkKey(k); err != nil {
		return false, err
	}
	defer observeTreeOp("delete", time.Now())
	t.mu.Lock()
	defer t.mu.Unlock()

	leaf, err := t.descendToLeaf(k)
	if err != nil {
		return false, err
	}
	idx, ok, err := leaf.searchLeaf(k, t.cmp)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	leaf.keys = append(leaf.keys[:idx], leaf.keys[idx+1:]...)
	leaf.values = append(leaf.values[:idx], leaf.values[idx+1:]...)
	t.count--
	return true, nil
}

// Len returns the current number of distinct keys in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// KeyType returns the tree's declared key variant.
func (t *Tree) KeyType() value.Variant { return t.keyType }

func observeTreeOp(op string, start time.Time) {
	metrics.TreeOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func insertValueAt(s []value.Value, idx int, v value.Value) []value.Value {
	s = append(s, value.Value{})
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertBytesAt(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertNodeAt(s []*node, idx int, v *node) []*node {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}
