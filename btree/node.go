/*
Package btree implements the engine's in-memory, order-preserving B+ tree
index: typed keys to opaque value blobs, with O(log N)
point lookup and ordered/range scans.

A page-resident B-tree typically keeps nodes as slotted cells inside
4 KiB pages, where split and merge rewrite page bytes in place and a
pager mediates every node access. This tree keeps none of that
substrate — it lives entirely in process memory and is not backed by
the paged store (package storage) at all; durability comes from the
write-ahead log instead. What carries over is a page-resident B-tree's
shape of the algorithm: sorted-key nodes, sibling-linked leaves,
promote-on-split, cascading internal splits. Those are rewritten below
as ordinary Go structs and pointers.
*/
package btree

import "github.com/mdedb/mde/value"

// comparator is the tree's configured per-type key comparator, bound to
// value.Compare at construction.
type comparator func(a, b value.Value) (int, error)

// node is the shape shared by leaf and internal nodes.
type node struct {
	leaf     bool
	keys     []value.Value
	values   [][]byte // populated iff leaf; values[i] pairs with keys[i]
	children []*node  // populated iff internal; len(children) == len(keys)+1
	prev     *node    // leaf sibling link
	next     *node    // leaf sibling link
}

func newLeaf() *node {
	return &node{leaf: true}
}

func newInternal(keys []value.Value, children []*node) *node {
	return &node{keys: keys, children: children}
}

// childIndex returns the index of the child to descend into for target:
// the largest i with cmp(target, keys[i]) >= 0 selects children[i+1];
// if no such i exists, children[0].
func (n *node) childIndex(target value.Value, cmp comparator) (int, error) {
	i := -1
	for idx, k := range n.keys {
		c, err := cmp(target, k)
		if err != nil {
			return 0, err
		}
		if c >= 0 {
			i = idx
		} else {
			break
		}
	}
	return i + 1, nil
}

// searchLeaf binary-searches a leaf's sorted keys for target, returning
// (index, true) on an exact match or (insertion point, false) otherwise.
func (n *node) searchLeaf(target value.Value, cmp comparator) (int, bool, error) {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		c, err := cmp(n.keys[mid], target)
		if err != nil {
			return 0, false, err
		}
		switch {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}
